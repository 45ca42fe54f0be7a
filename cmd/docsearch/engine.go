package main

import (
	"context"
	"fmt"
	"os"

	"github.com/bastiangx/docsearch/internal/utils"
	"github.com/bastiangx/docsearch/pkg/search"
	"github.com/bastiangx/docsearch/pkg/shard"
	"github.com/charmbracelet/log"
)

// dataMarkers are the files that make a directory a shard directory.
var dataMarkers = []string{shard.ManifestFile, shard.SectionIndexFile, "*.js", "*" + shard.PackedExt}

// resolveDataDir finds the shard directory from the flag or config value.
func (d *Dependencies) resolveDataDir() (string, error) {
	dir := d.DataDir
	if dir == "" {
		dir = d.Config.Shards.Dir
	}
	pr, err := utils.NewPathResolver(dataMarkers...)
	if err != nil {
		return "", fmt.Errorf("failed to initialize path resolver: %w", err)
	}
	resolved, err := pr.GetDataDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve data dir: %w", err)
	}
	log.Debugf("Using data dir at: %s", resolved)
	return resolved, nil
}

// openLoader catalogs the shard directory and returns a loader over it.
func (d *Dependencies) openLoader() (*shard.Loader, error) {
	dir, err := d.resolveDataDir()
	if err != nil {
		return nil, err
	}
	fsys := os.DirFS(dir)
	catalog, err := shard.OpenCatalog(fsys, shard.CatalogOptions{SkipSections: d.Config.Shards.SkipSections})
	if err != nil {
		return nil, fmt.Errorf("failed to read shard directory %s: %w", dir, err)
	}
	return shard.NewLoader(fsys, catalog,
		shard.WithMaxRetries(d.Config.Shards.MaxRetries),
		shard.WithMetrics(d.Metrics),
	), nil
}

// openEngine creates an engine over the shard directory and preloads it if
// asked to by the flag or the config.
func (d *Dependencies) openEngine(preload bool) (*search.Engine, error) {
	loader, err := d.openLoader()
	if err != nil {
		return nil, err
	}
	opts, err := d.Config.SearchOptions()
	if err != nil {
		return nil, err
	}
	engine := search.NewEngine(loader, opts, d.Metrics)

	if preload || d.Config.Shards.Preload {
		if err := engine.Preload(d.Ctx); err != nil {
			log.Warnf("Preload incomplete, word matches may miss symbols: %v", err)
		}
	}
	return engine, nil
}

// warmUp preloads the remaining shards in the background for long running
// commands, so word matches stop depending on what was typed before. The
// returned func cancels the warm up and waits for it.
func (d *Dependencies) warmUp(engine *search.Engine, preloaded bool) func() {
	if preloaded || d.Config.Shards.Preload || !d.Config.Shards.WarmUp {
		return func() {}
	}
	ctx, cancel := context.WithCancel(d.Ctx)
	done := engine.PreloadInBackground(ctx)
	return func() {
		cancel()
		<-done
	}
}
