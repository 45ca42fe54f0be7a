/*
Package config manages the TOML config of docsearch.
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bastiangx/docsearch/internal/utils"
	"github.com/bastiangx/docsearch/pkg/search"
	"github.com/bastiangx/docsearch/pkg/shard"
	"github.com/bastiangx/docsearch/pkg/symbol"
	"github.com/charmbracelet/log"
)

// Config holds the entire config structure
type Config struct {
	Search SearchConfig `toml:"search"`
	Shards ShardsConfig `toml:"shards"`
	Server ServerConfig `toml:"server"`
	CLI    CliConfig    `toml:"cli"`
}

// SearchConfig holds query engine options.
type SearchConfig struct {
	MaxResults    int      `toml:"max_results"`
	MaxInput      int      `toml:"max_input"`
	CategoryOrder []string `toml:"category_order"`
	CacheSize     int      `toml:"cache_size"`
}

// ShardsConfig holds shard directory and loading options.
type ShardsConfig struct {
	Dir            string   `toml:"dir"`
	Partition      string   `toml:"partition"`
	HashShards     int      `toml:"hash_shards"`
	LoadTimeout    string   `toml:"load_timeout"`
	MaxRetries     int      `toml:"max_retries"`
	Preload        bool     `toml:"preload"`
	WarmUp         bool     `toml:"warm_up"`
	PreloadWorkers int      `toml:"preload_workers"`
	SkipSections   []string `toml:"skip_sections"`
}

// ServerConfig has IPC server options.
type ServerConfig struct {
	DefaultLimit int `toml:"default_limit"`
	MaxLimit     int `toml:"max_limit"`
}

// CliConfig holds cli interface options.
type CliConfig struct {
	DefaultLimit int `toml:"default_limit"`
}

// GetConfigDir returns the config directory with fallback priority:
// 1. ~/.config/docsearch
// 2. ~/Library/Application Support/docsearch (macOS)
// 3. Current executable dir
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Errorf("Failed to get home directory: %v", err)
		return utils.GetExecutableDir()
	}
	primaryPath := filepath.Join(homeDir, ".config", utils.AppName)
	if result := utils.CheckDirStatus(primaryPath); result.Writable {
		return primaryPath, nil
	}
	macOSPath := filepath.Join(homeDir, "Library", "Application Support", utils.AppName)
	if result := utils.CheckDirStatus(macOSPath); result.Writable {
		return macOSPath, nil
	}
	execDir, err := utils.GetExecutableDir()
	if err != nil {
		log.Errorf("Failed to get executable directory: %v", err)
		return "", err
	}
	return execDir, nil
}

// GetDefaultConfigPath returns the default path for config.toml
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}

// LoadConfigWithPriority loads config with priority:
// 1. Custom path from --config flag
// 2. Default path: [UserConfigDir]/docsearch/config.toml
// 3. Builtin defaults
func LoadConfigWithPriority(customConfigPath string) (*Config, string, error) {
	if customConfigPath != "" {
		if _, statErr := os.Stat(customConfigPath); statErr == nil {
			config, err := LoadConfig(customConfigPath)
			if err != nil {
				log.Warnf("Failed to load custom config from %s: %v. Trying default path...", customConfigPath, err)
			} else {
				log.Debugf("Loaded config from custom path: %s", customConfigPath)
				return config, customConfigPath, nil
			}
		} else {
			log.Warnf("Custom config file not found at %s: %v. Trying default path...", customConfigPath, statErr)
		}
	}
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		log.Warnf("Failed to determine default config path: %v. Using built-in defaults...", err)
		return DefaultConfig(), "", nil
	}

	config, err := InitConfig(defaultPath)
	if err != nil {
		log.Warnf("Failed to load/create config at default path %s: %v. Using builtin defaults...", defaultPath, err)
		return DefaultConfig(), "", nil
	}
	log.Debugf("Loaded config from default path: %s", defaultPath)
	return config, defaultPath, nil
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	defaults := search.DefaultOptions()
	order := make([]string, 0, len(defaults.CategoryOrder))
	for _, c := range defaults.CategoryOrder {
		order = append(order, c.String())
	}
	return &Config{
		Search: SearchConfig{
			MaxResults:    defaults.MaxResults,
			MaxInput:      defaults.MaxInput,
			CategoryOrder: order,
			CacheSize:     defaults.CacheSize,
		},
		Shards: ShardsConfig{
			Dir:            "data",
			Partition:      "first-rune",
			HashShards:     16,
			LoadTimeout:    defaults.LoadTimeout.String(),
			MaxRetries:     3,
			Preload:        false,
			WarmUp:         true,
			PreloadWorkers: defaults.Workers,
			SkipSections:   []string{"all"},
		},
		Server: ServerConfig{
			DefaultLimit: 20,
			MaxLimit:     defaults.MaxResults,
		},
		CLI: CliConfig{
			DefaultLimit: 10,
		},
	}
}

// InitConfig loads config from file or creates default if missing
func InitConfig(configPath string) (*Config, error) {
	configDir := filepath.Dir(configPath)

	if err := utils.EnsureDir(configDir); err != nil {
		log.Warnf("Failed to create config directory %s: %v. Using built-in defaults...", configDir, err)
		return DefaultConfig(), nil
	}

	if !utils.FileExists(configPath) {
		config := DefaultConfig()
		if err := SaveConfig(config, configPath); err != nil {
			log.Warnf("Failed to create default config file at %s: %v. Using built-in defaults...", configPath, err)
			return DefaultConfig(), nil
		}
		log.Debugf("Created default config file at: %s", configPath)
		return config, nil
	}

	config, err := LoadConfig(configPath)
	if err != nil {
		log.Warnf("Failed to load config from %s: %v. Using built-in defaults...", configPath, err)
		return DefaultConfig(), nil
	}
	return config, nil
}

// LoadConfig loads from a TOML file. A file that does not parse as a whole
// still contributes every value that can be recovered from it.
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	if err := utils.LoadTOMLFile(configPath, config); err != nil {
		return tryPartialParse(configPath)
	}
	return config, nil
}

// tryPartialParse attempts to parse a TOML file
func tryPartialParse(configPath string) (*Config, error) {
	config := DefaultConfig()

	tempConfig, err := utils.ParseTOMLWithRecovery(configPath)
	if err != nil {
		log.Warnf("Could not parse any valid configuration from %s: %v. Using all defaults.", configPath, err)
		return config, nil
	}

	if section, ok := utils.ExtractSection(tempConfig, "search"); ok {
		extractSearchConfig(section, &config.Search)
	}
	if section, ok := utils.ExtractSection(tempConfig, "shards"); ok {
		extractShardsConfig(section, &config.Shards)
	}
	if section, ok := utils.ExtractSection(tempConfig, "server"); ok {
		extractServerConfig(section, &config.Server)
	}
	if section, ok := utils.ExtractSection(tempConfig, "cli"); ok {
		extractCliConfig(section, &config.CLI)
	}
	return config, nil
}

func extractSearchConfig(data map[string]any, s *SearchConfig) {
	if val, ok := utils.ExtractInt64(data, "max_results"); ok {
		s.MaxResults = val
	}
	if val, ok := utils.ExtractInt64(data, "max_input"); ok {
		s.MaxInput = val
	}
	if val, ok := utils.ExtractStrings(data, "category_order"); ok {
		s.CategoryOrder = val
	}
	if val, ok := utils.ExtractInt64(data, "cache_size"); ok {
		s.CacheSize = val
	}
}

func extractShardsConfig(data map[string]any, s *ShardsConfig) {
	if val, ok := utils.ExtractString(data, "dir"); ok {
		s.Dir = val
	}
	if val, ok := utils.ExtractString(data, "partition"); ok {
		s.Partition = val
	}
	if val, ok := utils.ExtractInt64(data, "hash_shards"); ok {
		s.HashShards = val
	}
	if val, ok := utils.ExtractString(data, "load_timeout"); ok {
		s.LoadTimeout = val
	}
	if val, ok := utils.ExtractInt64(data, "max_retries"); ok {
		s.MaxRetries = val
	}
	if val, ok := utils.ExtractBool(data, "preload"); ok {
		s.Preload = val
	}
	if val, ok := utils.ExtractBool(data, "warm_up"); ok {
		s.WarmUp = val
	}
	if val, ok := utils.ExtractInt64(data, "preload_workers"); ok {
		s.PreloadWorkers = val
	}
	if val, ok := utils.ExtractStrings(data, "skip_sections"); ok {
		s.SkipSections = val
	}
}

func extractServerConfig(data map[string]any, server *ServerConfig) {
	if val, ok := utils.ExtractInt64(data, "default_limit"); ok {
		server.DefaultLimit = val
	}
	if val, ok := utils.ExtractInt64(data, "max_limit"); ok {
		server.MaxLimit = val
	}
}

func extractCliConfig(data map[string]any, cli *CliConfig) {
	if val, ok := utils.ExtractInt64(data, "default_limit"); ok {
		cli.DefaultLimit = val
	}
}

// SearchOptions converts the [search] and [shards] sections into engine
// options.
func (c *Config) SearchOptions() (search.Options, error) {
	opts := search.DefaultOptions()
	opts.MaxResults = c.Search.MaxResults
	opts.MaxInput = c.Search.MaxInput
	opts.CacheSize = c.Search.CacheSize
	opts.Workers = max(c.Shards.PreloadWorkers, 1)

	if len(c.Search.CategoryOrder) > 0 {
		order := make([]symbol.Category, 0, len(c.Search.CategoryOrder))
		for _, name := range c.Search.CategoryOrder {
			cat, err := symbol.ParseCategory(name)
			if err != nil {
				return opts, fmt.Errorf("search.category_order: %w", err)
			}
			order = append(order, cat)
		}
		opts.CategoryOrder = order
	}

	timeout, err := c.Shards.Timeout()
	if err != nil {
		return opts, err
	}
	opts.LoadTimeout = timeout
	return opts, nil
}

// Timeout parses load_timeout. An empty value means no timeout.
func (s ShardsConfig) Timeout() (time.Duration, error) {
	if s.LoadTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s.LoadTimeout)
	if err != nil {
		return 0, fmt.Errorf("shards.load_timeout: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("shards.load_timeout: negative duration %s", d)
	}
	return d, nil
}

// Partitioner returns the partition function packed shards are built with.
func (s ShardsConfig) Partitioner() (shard.Partitioner, error) {
	p, err := shard.NewPartitioner(s.Partition, s.HashShards)
	if err != nil {
		return nil, fmt.Errorf("shards.partition: %w", err)
	}
	return p, nil
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	if _, err := c.SearchOptions(); err != nil {
		return err
	}
	if _, err := c.Shards.Partitioner(); err != nil {
		return err
	}
	if c.Server.MaxLimit < 0 || c.Server.DefaultLimit < 0 {
		return fmt.Errorf("server limits must not be negative")
	}
	return nil
}

// Limit clamps a requested result count to the [server] limits. Zero or
// less selects the default limit.
func (s ServerConfig) Limit(requested int) int {
	limit := requested
	if limit <= 0 {
		limit = s.DefaultLimit
	}
	if s.MaxLimit > 0 && limit > s.MaxLimit {
		limit = s.MaxLimit
	}
	return limit
}

// RebuildConfigFile force creates a new config.toml at default
func RebuildConfigFile() (string, error) {
	defaultPath, err := GetDefaultConfigPath()
	if err != nil {
		return "", err
	}
	if err := utils.EnsureDir(filepath.Dir(defaultPath)); err != nil {
		return "", err
	}
	return defaultPath, SaveConfig(DefaultConfig(), defaultPath)
}

// GetActiveConfigPath returns the absolute path of loaded config file
func GetActiveConfigPath(configPath string) string {
	if configPath == "" {
		if defaultPath, err := GetDefaultConfigPath(); err == nil {
			return defaultPath
		}
		return "unknown"
	}
	return utils.GetAbsolutePath(configPath)
}

// SaveConfig saves into a TOML file
func SaveConfig(config *Config, configPath string) error {
	return utils.SaveTOMLFile(config, configPath)
}
