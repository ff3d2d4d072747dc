package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/chazu/littlec/server"
)

// cmdServe starts the run service.
func (c *cli) cmdServe(args []string) int {
	m, err := c.project("")
	if err != nil {
		fmt.Fprintf(c.stderr, "Error loading manifest: %v\n", err)
		return 1
	}

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	addr := fs.String("addr", m.Server.Addr, "listen address")
	maxRuns := fs.Int("max-runs", m.Server.MaxRuns, "programs run at once")
	timeout := fs.Duration("timeout", m.Server.RunTimeout.Duration, "abort runs after this long")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	limits := c.limits(m)
	if limits.MaxSteps == 0 {
		limits.MaxSteps = m.Server.MaxSteps
	}
	opts := []server.ServerOption{
		server.WithLimits(limits),
		server.WithMaxRuns(*maxRuns),
		server.WithRunTimeout(*timeout),
	}

	store, err := c.openHistory(m, true)
	if err != nil {
		fmt.Fprintf(c.stderr, "Error opening run history: %v\n", err)
		return 1
	}
	if store != nil {
		defer store.Close()
		opts = append(opts, server.WithHistory(store))
	}

	srv := server.New(opts...)
	defer srv.Stop()
	c.log.Infof("max %d concurrent runs, %d steps, %s per run", *maxRuns, limits.MaxSteps, timeout.Round(time.Millisecond))
	if err := srv.ListenAndServe(*addr); err != nil {
		fmt.Fprintf(c.stderr, "Server error: %v\n", err)
		return 1
	}
	return 0
}

// cmdLSP starts the language server on stdio.
func (c *cli) cmdLSP(args []string) int {
	m, err := c.project("")
	if err != nil {
		fmt.Fprintf(c.stderr, "Error loading manifest: %v\n", err)
		return 1
	}
	if err := server.NewLSP(c.limits(m)).Run(); err != nil {
		fmt.Fprintf(c.stderr, "LSP error: %v\n", err)
		return 1
	}
	return 0
}
