package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/bastiangx/docsearch/internal/cli"
	"github.com/bastiangx/docsearch/pkg/config"
	"github.com/bastiangx/docsearch/pkg/search"
	"github.com/bastiangx/docsearch/pkg/server"
	"github.com/bastiangx/docsearch/pkg/shard"
	"github.com/bastiangx/docsearch/pkg/symbol"
	"github.com/charmbracelet/log"
)

// Run starts the IPC server.
func (c *ServeCmd) Run(deps *Dependencies) error {
	engine, err := deps.openEngine(c.Preload)
	if err != nil {
		return err
	}
	srv := server.NewServer(engine,
		server.WithIO(deps.Stdin, deps.Stdout),
		server.WithLimits(deps.Config.Server),
		server.WithReload(deps.openLoader),
		server.WithMetrics(deps.Metrics),
	)
	showStartupInfo(engine)
	defer deps.warmUp(engine, c.Preload)()

	if err := srv.Start(deps.Ctx); err != nil && !errors.Is(err, deps.Ctx.Err()) {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// showStartupInfo displays some basic info about the init process.
func showStartupInfo(engine *search.Engine) {
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)
	defer log.SetLevel(currentLevel)

	st := engine.Stats()
	log.Info("docsearch ready",
		"version", Version,
		"pid", os.Getpid(),
		"shards", st.AvailableShards,
		"loaded", st.MergedShards,
		"keys", st.Keys)
}

type jsonHit struct {
	Match    string       `json:"match"`
	Category string       `json:"category"`
	Entry    symbol.Entry `json:"entry"`
}

type jsonResult struct {
	Input    string    `json:"input"`
	Hits     []jsonHit `json:"hits"`
	Degraded bool      `json:"degraded,omitempty"`
	Failed   []string  `json:"failed,omitempty"`
}

// Run answers each input once.
func (c *QueryCmd) Run(deps *Dependencies) error {
	engine, err := deps.openEngine(c.Preload)
	if err != nil {
		return err
	}
	limit := c.Limit
	if limit <= 0 {
		limit = deps.Config.CLI.DefaultLimit
	}

	enc := json.NewEncoder(deps.Stdout)
	for _, in := range c.Input {
		res, err := engine.Query(deps.Ctx, in)
		if err != nil {
			return fmt.Errorf("query %q: %w", in, err)
		}
		hits := res.Hits
		if limit > 0 && len(hits) > limit {
			hits = hits[:limit]
		}

		if c.JSON {
			out := jsonResult{Input: res.Input, Hits: make([]jsonHit, 0, len(hits)), Degraded: res.Degraded, Failed: res.Failed}
			for _, h := range hits {
				out.Hits = append(out.Hits, jsonHit{Match: h.Kind.String(), Category: h.Entry.Category.String(), Entry: h.Entry})
			}
			if err := enc.Encode(out); err != nil {
				return err
			}
			continue
		}

		status := ""
		if res.Degraded {
			status = fmt.Sprintf(", degraded: %v", res.Failed)
		}
		fmt.Fprintf(deps.Stdout, "%s (%d of %d hits%s)\n", res.Input, len(hits), len(res.Hits), status)
		for i, h := range hits {
			fmt.Fprintf(deps.Stdout, "%3d. %-6s %s\t%s\t%s\t%s\n",
				i+1, h.Kind, h.Entry.DisplayName, h.Entry.Category, h.Entry.Locator.SourceLabel, h.Entry.Locator.Anchor)
		}
	}
	return nil
}

// Run starts the interactive prompt.
func (c *ReplCmd) Run(deps *Dependencies) error {
	engine, err := deps.openEngine(c.Preload)
	if err != nil {
		return err
	}
	limit := c.Limit
	if limit <= 0 {
		limit = deps.Config.CLI.DefaultLimit
	}
	log.Debug("Input info:", "limit", limit)
	defer deps.warmUp(engine, c.Preload)()
	return cli.NewInputHandler(deps.Ctx, engine, limit, deps.Stdin, deps.Stdout).Start(deps.Ctx)
}

// Run loads every shard of the source directory and writes them
// repartitioned into the output directory.
func (c *PackCmd) Run(deps *Dependencies) error {
	shards := deps.Config.Shards
	if c.Partition != "" {
		shards.Partition = c.Partition
	}
	if c.HashShards > 0 {
		shards.HashShards = c.HashShards
	}
	partitioner, err := shards.Partitioner()
	if err != nil {
		return err
	}

	loader, err := deps.openLoader()
	if err != nil {
		return err
	}
	var (
		mu     sync.Mutex
		loaded []*shard.Shard
	)
	if err := loader.Preload(deps.Ctx, max(shards.PreloadWorkers, 1), func(s *shard.Shard) {
		mu.Lock()
		loaded = append(loaded, s)
		mu.Unlock()
	}); err != nil {
		return fmt.Errorf("refusing to pack an incomplete directory: %w", err)
	}
	sort.Slice(loaded, func(i, j int) bool { return loaded[i].ID < loaded[j].ID })

	packed, manifest := shard.Repartition(loaded, partitioner)
	if err := shard.WritePackedDir(c.Out, packed, manifest); err != nil {
		return err
	}
	fmt.Fprintf(deps.Stdout, "packed %d shards into %d %s partitions in %s\n",
		len(loaded), len(packed), partitioner.Name(), c.Out)
	return nil
}

// Run prints the active config path.
func (c *ConfigPathCmd) Run(deps *Dependencies) error {
	fmt.Fprintln(deps.Stdout, config.GetActiveConfigPath(deps.ConfigPath))
	return nil
}

// Run rewrites the default config file.
func (c *ConfigRebuildCmd) Run(deps *Dependencies) error {
	path, err := config.RebuildConfigFile()
	if err != nil {
		return fmt.Errorf("failed to rebuild config: %w", err)
	}
	fmt.Fprintf(deps.Stdout, "wrote default config to %s\n", path)
	return nil
}
