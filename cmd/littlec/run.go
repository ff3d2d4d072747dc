package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/chazu/littlec/history"
	"github.com/chazu/littlec/lib"
	"github.com/chazu/littlec/server"
	"github.com/chazu/littlec/vm"
)

// cmdRun runs a program locally or on a littlec server.
// Usage:
//
//	littlec run prog.c
//	littlec run prog.lci
//	littlec run -remote http://localhost:8765 prog.c
func (c *cli) cmdRun(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	remote := fs.String("remote", "", "run on the littlec server at this URL")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	path, m, err := c.programPath(fs.Args())
	if err != nil {
		fmt.Fprintf(c.stderr, "Error loading manifest: %v\n", err)
		return 1
	}
	if *remote != "" {
		return c.runRemote(*remote, path, c.entryPoint(m), c.limits(m).MaxProgramSize)
	}

	in, err := c.load(path, vm.Config{
		Limits:     c.limits(m),
		Entry:      c.entryPoint(m),
		Intrinsics: lib.Standard(c.stdin, c.stdout),
	})
	if err != nil {
		c.report(path, err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	res, runErr := in.RunContext(ctx)
	c.log.Infof("%s returned %d after %d statements", path, res.Value, res.Steps)

	store, err := c.openHistory(m, hasManifest(m))
	if err != nil {
		c.log.Errorf("opening run history: %v", err)
	} else if store != nil {
		defer store.Close()
		c.record(store, path, c.entryPoint(m), res, runErr, time.Since(start))
	}

	if runErr != nil {
		c.report(path, runErr)
		return 1
	}
	return 0
}

func (c *cli) record(store *history.Store, path, entry string, res vm.Result, runErr error, d time.Duration) {
	r := history.Run{
		Program:  path,
		Entry:    entry,
		Status:   history.StatusOK,
		Value:    res.Value,
		Steps:    res.Steps,
		Duration: d,
	}
	if r.Entry == "" {
		r.Entry = vm.DefaultEntry
	}
	var e *vm.Error
	switch {
	case errors.As(runErr, &e):
		r.Status = history.StatusError
		r.ErrorKind = e.Kind.String()
		r.Error = e.Error()
	case runErr != nil:
		r.Status = history.StatusError
		r.Error = runErr.Error()
	case res.Ended:
		r.Status = history.StatusEnded
	}
	saved, err := store.Record(context.Background(), r)
	if err != nil {
		c.log.Errorf("recording run: %v", err)
		return
	}
	c.log.Debugf("recorded run %s", saved.ID)
}

func (c *cli) runRemote(baseURL, path, entry string, maxSize int) int {
	src, err := vm.LoadFile(path, maxSize)
	if err != nil {
		c.report(path, err)
		return 1
	}

	input, err := readAll(c.stdin)
	if err != nil {
		fmt.Fprintf(c.stderr, "Error reading input: %v\n", err)
		return 1
	}

	client := server.NewClient(http.DefaultClient, baseURL)
	resp, err := client.Run(context.Background(), &server.RunRequest{
		Source:   src,
		Entry:    entry,
		Input:    input,
		MaxSteps: c.maxSteps,
	})
	if err != nil {
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprint(c.stdout, resp.Output)
	c.log.Infof("run %s returned %d after %d statements", resp.ID, resp.Value, resp.Steps)

	if resp.Error != nil {
		if resp.Error.Line > 0 {
			fmt.Fprintf(c.stderr, "%s:%d:%d: %s\n", path, resp.Error.Line, resp.Error.Column, trimPosition(resp.Error.Message))
		} else {
			fmt.Fprintf(c.stderr, "%s: %s\n", path, resp.Error.Message)
		}
		return 1
	}
	return 0
}

// readAll reads the program's input, unless stdin is a terminal.
func readAll(r io.Reader) (string, error) {
	if f, ok := r.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		return "", nil
	}
	data, err := io.ReadAll(r)
	return string(data), err
}

// trimPosition drops the "line N, column M: " prefix of a rendered error.
func trimPosition(msg string) string {
	if strings.HasPrefix(msg, "line ") {
		if _, rest, ok := strings.Cut(msg, ": "); ok {
			return rest
		}
	}
	return msg
}
