package main

import (
	"context"
	"io"

	"github.com/bastiangx/docsearch/internal/metrics"
	"github.com/bastiangx/docsearch/pkg/config"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx        context.Context
	Stdin      io.Reader
	Stdout     io.Writer
	Stderr     io.Writer
	Config     *config.Config
	ConfigPath string
	Metrics    *metrics.Metrics
	// DataDir overrides shards.dir when set.
	DataDir string
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	ConfigFile  string `name:"config" short:"c" type:"path" help:"Path to config.toml"`
	Data        string `short:"D" help:"Shard directory, overrides shards.dir"`
	Debug       bool   `short:"d" help:"Toggle debug mode"`
	LogFormat   string `default:"text" enum:"text,json,logfmt" help:"Log format (text, json, logfmt)"`
	MetricsAddr string `help:"Serve Prometheus metrics on this address, e.g. :9090"`

	Serve   ServeCmd   `cmd:"" default:"1" help:"Serve queries over msgpack IPC on stdin/stdout"`
	Query   QueryCmd   `cmd:"" help:"Run queries once and print the ranked hits"`
	Repl    ReplCmd    `cmd:"" help:"Try queries interactively"`
	Pack    PackCmd    `cmd:"" help:"Repack a shard directory into msgpack shards"`
	Conf    ConfigCmd  `cmd:"" name:"config" help:"Manage the config file"`
	Version VersionCmd `cmd:"" help:"Show current version"`
}

// ServeCmd is the "serve" subcommand.
type ServeCmd struct {
	Preload bool `help:"Load every shard before serving, overrides shards.preload"`
}

// QueryCmd is the "query" subcommand.
type QueryCmd struct {
	Input   []string `arg:"" help:"Inputs to query, each answered separately"`
	Limit   int      `short:"n" help:"Hits to print per input (default cli.default_limit)"`
	Preload bool     `help:"Load every shard first so word matches are complete"`
	JSON    bool     `help:"Print one JSON result per line"`
}

// ReplCmd is the "repl" subcommand.
type ReplCmd struct {
	Limit   int  `short:"n" help:"Hits to print per input (default cli.default_limit)"`
	Preload bool `help:"Load every shard first so word matches are complete"`
}

// PackCmd is the "pack" subcommand.
type PackCmd struct {
	Out        string `arg:"" type:"path" help:"Output directory"`
	Partition  string `help:"Partition function: first-rune or hash (default shards.partition)"`
	HashShards int    `help:"Number of hash partitions (default shards.hash_shards)"`
}

// ConfigCmd groups config file management.
type ConfigCmd struct {
	Path    ConfigPathCmd    `cmd:"" help:"Print the path of the active config file"`
	Rebuild ConfigRebuildCmd `cmd:"" help:"Overwrite the default config file with defaults"`
}

// ConfigPathCmd is the "config path" subcommand.
type ConfigPathCmd struct{}

// ConfigRebuildCmd is the "config rebuild" subcommand.
type ConfigRebuildCmd struct{}

// VersionCmd is the "version" subcommand.
type VersionCmd struct {
	Paths bool `help:"Also print the resolved runtime paths"`
}
