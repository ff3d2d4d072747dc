package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/littlec/lexer"
	"github.com/chazu/littlec/vm"
)

// cmdCheck prescans a program and lists what it declares.
func (c *cli) cmdCheck(args []string) int {
	path, m, err := c.programPath(args)
	if err != nil {
		fmt.Fprintf(c.stderr, "Error loading manifest: %v\n", err)
		return 1
	}

	in, err := c.load(path, vm.Config{Limits: c.limits(m), Entry: c.entryPoint(m)})
	if err == nil {
		err = in.Prescan()
	}
	if err != nil {
		c.report(path, err)
		return 1
	}

	funcs, globals := in.Functions(), in.Globals()
	fmt.Fprintf(c.stdout, "%s: %d functions, %d globals\n", path, len(funcs), len(globals))
	lx := lexer.NewLexer(in.Source())
	for _, f := range funcs {
		fmt.Fprintf(c.stdout, "  %-40s line %d\n", f.Signature(), lx.Position(f.Offset).Line)
	}
	for _, g := range globals {
		fmt.Fprintf(c.stdout, "  %s %s\n", g.Type, g.Name)
	}
	return 0
}

// cmdBuild writes a prescanned image of a program.
// Usage:
//
//	littlec build                 # [image].output of littlec.toml
//	littlec build -o fact.lci fact.c
func (c *cli) cmdBuild(args []string) int {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	output := fs.String("o", "", "output image path")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	path, m, err := c.programPath(fs.Args())
	if err != nil {
		fmt.Fprintf(c.stderr, "Error loading manifest: %v\n", err)
		return 1
	}
	if strings.HasSuffix(path, imageExt) {
		fmt.Fprintf(c.stderr, "%s: already an image\n", path)
		return 1
	}

	out := *output
	switch {
	case out != "":
	case hasManifest(m) && fs.NArg() == 0:
		out = m.ImagePath()
	default:
		out = strings.TrimSuffix(path, filepath.Ext(path)) + imageExt
	}

	in, err := c.load(path, vm.Config{Limits: c.limits(m), Entry: c.entryPoint(m)})
	if err != nil {
		c.report(path, err)
		return 1
	}
	img, err := in.Image()
	if err != nil {
		c.report(path, err)
		return 1
	}
	data, err := vm.MarshalImage(img)
	if err != nil {
		fmt.Fprintf(c.stderr, "Error encoding image: %v\n", err)
		return 1
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		fmt.Fprintf(c.stderr, "Error writing image: %v\n", err)
		return 1
	}

	c.log.Infof("wrote %s (%d bytes, %d functions)", out, len(data), len(img.Functions))
	return 0
}
