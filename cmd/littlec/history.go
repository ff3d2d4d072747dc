package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"time"

	"github.com/chazu/littlec/server"
)

// cmdHistory lists recent runs from the local database or a server.
func (c *cli) cmdHistory(args []string) int {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	n := fs.Int("n", 20, "number of runs to list")
	remote := fs.String("remote", "", "list runs recorded by the littlec server at this URL")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *remote != "" {
		resp, err := server.NewClient(http.DefaultClient, *remote).History(context.Background(), *n)
		if err != nil {
			fmt.Fprintf(c.stderr, "Error: %v\n", err)
			return 1
		}
		for _, r := range resp.Runs {
			c.printRun(r.ID, r.Status, r.Value, r.Steps, r.Started, r.ErrorKind)
		}
		return 0
	}

	m, err := c.project("")
	if err != nil {
		fmt.Fprintf(c.stderr, "Error loading manifest: %v\n", err)
		return 1
	}
	if c.historyPath == "" && !hasManifest(m) {
		fmt.Fprintln(c.stderr, "Error: no littlec.toml found and no -history database given")
		return 1
	}
	store, err := c.openHistory(m, true)
	if err != nil {
		fmt.Fprintf(c.stderr, "Error opening run history: %v\n", err)
		return 1
	}
	if store == nil {
		fmt.Fprintln(c.stderr, "Error: run history is disabled")
		return 1
	}
	defer store.Close()

	runs, err := store.Recent(context.Background(), *n)
	if err != nil {
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return 1
	}
	for _, r := range runs {
		c.printRun(r.ID, string(r.Status), r.Value, r.Steps, r.Started.UTC().Format(time.RFC3339), r.ErrorKind)
	}
	return 0
}

func (c *cli) printRun(id, status string, value, steps int, started, errKind string) {
	fmt.Fprintf(c.stdout, "%s  %s  %-6s %6d %8d steps", id, started, status, value, steps)
	if errKind != "" {
		fmt.Fprintf(c.stdout, "  %s", errKind)
	}
	fmt.Fprintln(c.stdout)
}
