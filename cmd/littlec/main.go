// Little C CLI - runs, checks, builds and serves Little C programs
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/chazu/littlec/history"
	"github.com/chazu/littlec/manifest"
	"github.com/chazu/littlec/vm"

	_ "github.com/tliron/commonlog/simple"
)

func main() {
	os.Exit(runMain(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// cli carries the global flags and streams shared by every subcommand.
type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	verbose     int
	entry       string
	maxSteps    int
	historyPath string
	noHistory   bool

	log commonlog.Logger
}

const usage = `Usage: littlec [options] <command> [arguments]
       littlec [options] <file.c|image.lci>

Commands:
  run [-remote URL] [file]   run a program (default: [source].file of littlec.toml)
  check [file]               prescan a program and list its functions and globals
  build [-o out.lci] [file]  write a prescanned program image
  serve [-addr host:port]    serve the run service over Connect (HTTP/JSON)
  lsp                        start the language server on stdio
  history [-n N] [-remote URL]
                             list recent runs

Options:
`

var commands = map[string]func(*cli, []string) int{
	"run":     (*cli).cmdRun,
	"check":   (*cli).cmdCheck,
	"build":   (*cli).cmdBuild,
	"serve":   (*cli).cmdServe,
	"lsp":     (*cli).cmdLSP,
	"history": (*cli).cmdHistory,
}

// runMain parses the global flags and dispatches to a subcommand. It
// returns the process exit code.
func runMain(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	c := &cli{stdin: stdin, stdout: stdout, stderr: stderr}

	fs := flag.NewFlagSet("littlec", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.IntVar(&c.verbose, "v", 0, "log verbosity (1 info, 2 debug)")
	fs.StringVar(&c.entry, "entry", "", "entry function (default main)")
	fs.IntVar(&c.maxSteps, "max-steps", 0, "abort after this many statements (0 for no limit)")
	fs.StringVar(&c.historyPath, "history", "", "run history database")
	fs.BoolVar(&c.noHistory, "no-history", false, "do not record runs")
	logPath := fs.String("log", "", "write logs to this file instead of stderr")
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if *logPath != "" {
		commonlog.Configure(c.verbose, logPath)
	} else {
		commonlog.Configure(c.verbose, nil)
	}
	c.log = commonlog.GetLogger("littlec")

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return 2
	}
	if cmd, ok := commands[rest[0]]; ok {
		return cmd(c, rest[1:])
	}
	if rest[0] == "help" {
		fs.Usage()
		return 0
	}
	return c.cmdRun(rest)
}

// project finds the littlec.toml governing path (a file or directory),
// falling back to defaults rooted at the working directory.
func (c *cli) project(path string) (*manifest.Manifest, error) {
	dir := "."
	if path != "" {
		dir = filepath.Dir(path)
	}
	m, err := manifest.FindAndLoad(dir)
	if err != nil {
		return nil, err
	}
	if m != nil {
		c.log.Debugf("using %s", filepath.Join(m.Dir, manifest.FileName))
		return m, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return manifest.Default(wd), nil
}

// programPath returns the file argument, or the manifest's source file.
func (c *cli) programPath(args []string) (string, *manifest.Manifest, error) {
	var path string
	if len(args) > 0 {
		path = args[0]
	}
	m, err := c.project(path)
	if err != nil {
		return "", nil, err
	}
	if path == "" {
		path = m.SourcePath()
	}
	return path, m, nil
}

// limits merges the manifest limits with the command line.
func (c *cli) limits(m *manifest.Manifest) vm.Limits {
	l := m.VMLimits()
	if c.maxSteps > 0 {
		l.MaxSteps = c.maxSteps
	}
	return l
}

// entryPoint returns the entry function from the command line or manifest.
// An empty result lets an image supply its own.
func (c *cli) entryPoint(m *manifest.Manifest) string {
	if c.entry != "" {
		return c.entry
	}
	if m.Source.Entry != vm.DefaultEntry {
		return m.Source.Entry
	}
	return ""
}

// openHistory opens the run history named by -history, or the manifest's
// database when a littlec.toml is in use. It returns nil when runs should
// not be recorded.
func (c *cli) openHistory(m *manifest.Manifest, found bool) (*history.Store, error) {
	if c.noHistory {
		return nil, nil
	}
	path := c.historyPath
	if path == "" {
		if !found || m.History.Disabled {
			return nil, nil
		}
		path = m.HistoryPath()
	}
	return history.Open(path)
}

// hasManifest reports whether m was loaded from a littlec.toml.
func hasManifest(m *manifest.Manifest) bool {
	_, err := os.Stat(filepath.Join(m.Dir, manifest.FileName))
	return err == nil
}

// load reads a program from source or from a built image.
func (c *cli) load(path string, cfg vm.Config) (*vm.Interpreter, error) {
	if strings.HasSuffix(path, imageExt) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return vm.LoadImage(data, cfg)
	}
	src, err := vm.LoadFile(path, cfg.Limits.MaxProgramSize)
	if err != nil {
		return nil, err
	}
	return vm.NewInterpreter(src, cfg)
}

const imageExt = ".lci"

// report prints err in file:line:col form.
func (c *cli) report(path string, err error) {
	fmt.Fprintln(c.stderr, formatError(path, err))
}

func formatError(path string, err error) string {
	var e *vm.Error
	if errors.As(err, &e) && e.Pos.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", path, e.Pos.Line, e.Pos.Column, trimPosition(e.Error()))
	}
	return fmt.Sprintf("%s: %v", path, err)
}
