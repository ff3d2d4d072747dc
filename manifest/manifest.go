// Package manifest handles littlec.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/chazu/littlec/vm"
)

// FileName is the project file looked up by Load and FindAndLoad.
const FileName = "littlec.toml"

// Manifest represents a littlec.toml project configuration.
type Manifest struct {
	Project Project       `toml:"project"`
	Source  Source        `toml:"source"`
	Limits  LimitsConfig  `toml:"limits"`
	Server  ServerConfig  `toml:"server"`
	History HistoryConfig `toml:"history"`
	Image   ImageConfig   `toml:"image"`

	// Dir is the directory containing the littlec.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Source names the program and its entry function.
type Source struct {
	File  string `toml:"file"`
	Entry string `toml:"entry"`
}

// LimitsConfig overrides interpreter capacities. Zero keeps the default.
type LimitsConfig struct {
	ProgramSize int `toml:"program-size"`
	TokenLen    int `toml:"token-len"`
	Functions   int `toml:"functions"`
	Globals     int `toml:"globals"`
	Locals      int `toml:"locals"`
	CallDepth   int `toml:"call-depth"`
	Steps       int `toml:"steps"`
}

// ServerConfig configures `littlec serve`.
type ServerConfig struct {
	Addr       string   `toml:"addr"`
	MaxRuns    int      `toml:"max-runs"`
	MaxSteps   int      `toml:"max-steps"`
	RunTimeout Duration `toml:"run-timeout"`
}

// HistoryConfig configures the run history database.
type HistoryConfig struct {
	Path     string `toml:"path"`
	Disabled bool   `toml:"disabled"`
}

// ImageConfig configures `littlec build` output.
type ImageConfig struct {
	Output string `toml:"output"`
}

// Duration is a time.Duration written as a string such as "5s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Defaults applied by Load and Default.
const (
	DefaultSourceFile = "main.c"
	DefaultAddr       = "localhost:8765"
	DefaultMaxRuns    = 4
	DefaultMaxSteps   = 1000000
	DefaultRunTimeout = 10 * time.Second
	DefaultHistory    = ".littlec/history.db"
)

// Default returns a manifest with every default applied, for projects
// without a littlec.toml.
func Default(dir string) *Manifest {
	m := &Manifest{Dir: dir}
	m.applyDefaults()
	return m
}

func (m *Manifest) applyDefaults() {
	if m.Source.File == "" {
		m.Source.File = DefaultSourceFile
	}
	if m.Source.Entry == "" {
		m.Source.Entry = vm.DefaultEntry
	}
	if m.Server.Addr == "" {
		m.Server.Addr = DefaultAddr
	}
	if m.Server.MaxRuns <= 0 {
		m.Server.MaxRuns = DefaultMaxRuns
	}
	if m.Server.MaxSteps <= 0 {
		m.Server.MaxSteps = DefaultMaxSteps
	}
	if m.Server.RunTimeout.Duration <= 0 {
		m.Server.RunTimeout.Duration = DefaultRunTimeout
	}
	if m.History.Path == "" {
		m.History.Path = DefaultHistory
	}
	if m.Image.Output == "" {
		name := m.Project.Name
		if name == "" {
			name = "program"
		}
		m.Image.Output = name + ".lci"
	}
}

// Load parses a littlec.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	if err := m.Limits.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	m.applyDefaults()
	return &m, nil
}

// FindAndLoad walks up from startDir to find a littlec.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

func (l LimitsConfig) validate() error {
	for name, v := range map[string]int{
		"program-size": l.ProgramSize,
		"token-len":    l.TokenLen,
		"functions":    l.Functions,
		"globals":      l.Globals,
		"locals":       l.Locals,
		"call-depth":   l.CallDepth,
		"steps":        l.Steps,
	} {
		if v < 0 {
			return fmt.Errorf("limits.%s must not be negative, got %d", name, v)
		}
	}
	return nil
}

// VMLimits converts the [limits] section into interpreter limits.
func (m *Manifest) VMLimits() vm.Limits {
	return vm.Limits{
		MaxProgramSize: m.Limits.ProgramSize,
		MaxTokenLen:    m.Limits.TokenLen,
		MaxFunctions:   m.Limits.Functions,
		MaxGlobals:     m.Limits.Globals,
		MaxLocals:      m.Limits.Locals,
		MaxCallDepth:   m.Limits.CallDepth,
		MaxSteps:       m.Limits.Steps,
	}
}

// SourcePath returns the absolute path of the program file.
func (m *Manifest) SourcePath() string {
	return m.resolve(m.Source.File)
}

// HistoryPath returns the absolute path of the history database.
func (m *Manifest) HistoryPath() string {
	return m.resolve(m.History.Path)
}

// ImagePath returns the absolute path of the build output.
func (m *Manifest) ImagePath() string {
	return m.resolve(m.Image.Output)
}

func (m *Manifest) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}
