package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bastiangx/docsearch/pkg/search"
	"github.com/bastiangx/docsearch/pkg/symbol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.False(t, cfg.Shards.Preload)
	assert.True(t, cfg.Shards.WarmUp, "long running commands warm up in the background")

	opts, err := cfg.SearchOptions()
	require.NoError(t, err)
	assert.Equal(t, search.DefaultOptions(), opts)
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
[search]
max_results = 5
category_order = ["function", "type"]

[shards]
dir = "/srv/docs/html/search"
load_timeout = "150ms"
preload = true
warm_up = false
skip_sections = []
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Search.MaxResults)
	assert.Equal(t, 128, cfg.Search.MaxInput, "unset values keep their defaults")
	assert.Equal(t, "/srv/docs/html/search", cfg.Shards.Dir)
	assert.True(t, cfg.Shards.Preload)
	assert.False(t, cfg.Shards.WarmUp)
	assert.Empty(t, cfg.Shards.SkipSections)

	opts, err := cfg.SearchOptions()
	require.NoError(t, err)
	assert.Equal(t, []symbol.Category{symbol.Function, symbol.Type}, opts.CategoryOrder)
	assert.Equal(t, 150*time.Millisecond, opts.LoadTimeout)
}

func TestLoadConfigPartialRecovery(t *testing.T) {
	// max_results has the wrong type, so the strict decode fails
	path := writeConfig(t, `
[search]
max_results = "many"
max_input = 64

[server]
max_limit = 10
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Search.MaxResults)
	assert.Equal(t, 64, cfg.Search.MaxInput)
	assert.Equal(t, 10, cfg.Server.MaxLimit)
}

func TestLoadConfigUnparsable(t *testing.T) {
	path := writeConfig(t, `[search`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestInitConfigCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg, err := InitConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.FileExists(t, path)

	again, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again, "the written file round-trips")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown category", func(c *Config) { c.Search.CategoryOrder = []string{"type", "widget"} }},
		{"bad timeout", func(c *Config) { c.Shards.LoadTimeout = "soon" }},
		{"negative timeout", func(c *Config) { c.Shards.LoadTimeout = "-1s" }},
		{"unknown partitioner", func(c *Config) { c.Shards.Partition = "modulo" }},
		{"hash without shards", func(c *Config) { c.Shards.Partition = "hash"; c.Shards.HashShards = 0 }},
		{"negative limit", func(c *Config) { c.Server.MaxLimit = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestEmptyTimeoutDisablesDeadline(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Shards.LoadTimeout = ""
	opts, err := cfg.SearchOptions()
	require.NoError(t, err)
	assert.Zero(t, opts.LoadTimeout)
}

func TestServerLimit(t *testing.T) {
	s := ServerConfig{DefaultLimit: 20, MaxLimit: 50}
	assert.Equal(t, 20, s.Limit(0))
	assert.Equal(t, 7, s.Limit(7))
	assert.Equal(t, 50, s.Limit(500))
}
