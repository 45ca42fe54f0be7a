// Copyright 2025 The DocSearch Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main implements the docsearch symbol search server and its debugging
commands.

docsearch answers every keystroke of a documentation search box with ranked
symbol matches. It reads the search tables a documentation build emits
(Doxygen's searchdata.js plus <section>_<n>.js files, or the packed msgpack
layout written by `docsearch pack`), loads only the shards a keystroke needs
and merges them into an immutable in-memory index.

# Usage

Serve queries over msgpack IPC on stdin/stdout:

	docsearch serve -D ./html/search

Query once from the shell:

	docsearch query cgroup_free cgroup_fr free

Try queries interactively:

	docsearch repl -D ./html/search -d

Repack a Doxygen directory into hash partitioned msgpack shards:

	docsearch pack ./packed --partition hash --hash-shards 16

# Configuration

Configuration lives in a TOML file created with defaults on first run:

	[search]
	max_results = 50
	max_input = 128
	category_order = ["type", "function", "member", "macro", "namespace", "file", "group", "page"]
	cache_size = 256

	[shards]
	dir = "data"
	load_timeout = "2s"
	max_retries = 3
	preload = false
	skip_sections = ["all"]

	[server]
	default_limit = 20
	max_limit = 50

# IPC Protocol

See package server. In short, a query is

	{"id": "q1", "q": "cgroup_fr", "l": 20}

and only the latest query of a burst of keystrokes is answered.

# Logging

Logs go to stderr, never stdout. -d enables debug logs with timestamps,
--log-format selects text, json or logfmt output.
*/
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/bastiangx/docsearch/internal/logger"
	"github.com/bastiangx/docsearch/internal/metrics"
	"github.com/bastiangx/docsearch/pkg/config"
	"github.com/charmbracelet/log"
)

const (
	Version = "0.1.0"
	AppName = "docsearch"
	gh      = "https://github.com/bastiangx/docsearch"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := NewMain()
	if err := m.Run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		log.Error(err)
		stop()
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Metrics collects engine metrics for every command.
	Metrics *metrics.Metrics
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{Metrics: metrics.New()}
}

// Run parses args and executes the selected command.
func (m *Main) Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:     ctx,
		Stdin:   stdin,
		Stdout:  stdout,
		Stderr:  stderr,
		Metrics: m.Metrics,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name(AppName),
		kong.Description("Incremental symbol search over documentation search tables."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}),
		kong.UsageOnError(),
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	logger.Setup(cli.Debug, cli.LogFormat)
	deps.DataDir = cli.Data

	// version and config management work without a usable config
	switch kongCtx.Command() {
	case "version", "config path", "config rebuild":
		deps.ConfigPath = cli.ConfigFile
		return kongCtx.Run(deps)
	}

	cfg, path, err := config.LoadConfigWithPriority(cli.ConfigFile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("unusable config %s: %w", config.GetActiveConfigPath(path), err)
	}
	deps.Config = cfg
	deps.ConfigPath = path
	log.Debugf("Using config file: (%s)", config.GetActiveConfigPath(path))

	if cli.MetricsAddr != "" {
		shutdown := m.Metrics.StartServer(cli.MetricsAddr)
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = shutdown(sctx)
		}()
	}

	return kongCtx.Run(deps)
}
