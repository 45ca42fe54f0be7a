package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"
)

// ErrNoDataDir is returned when no candidate directory holds shard files.
var ErrNoDataDir = errors.New("no shard directory found")

// AppName names the config and data directories.
const AppName = "docsearch"

// PathResolver locates the shard directory and the config directory of the
// running binary.
type PathResolver struct {
	executableDir string
	homeDir       string
	configDir     string
	markers       []string
}

// NewPathResolver creates a resolver that accepts a directory as shard
// directory when it contains a file matching one of the glob markers.
func NewPathResolver(markers ...string) (*PathResolver, error) {
	execDir, err := GetExecutableDir()
	if err != nil {
		return nil, err
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Warnf("Could not determine home directory: %v", err)
		homeDir = os.TempDir()
	}

	pr := &PathResolver{
		executableDir: execDir,
		homeDir:       homeDir,
		configDir:     getConfigDir(homeDir),
		markers:       markers,
	}
	log.Debugf("PathResolver initialized: execDir=%s, configDir=%s", execDir, pr.configDir)
	return pr, nil
}

// getConfigDir returns the appropriate config directory for the platform
func getConfigDir(homeDir string) string {
	switch runtime.GOOS {
	case "linux":
		if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
			return filepath.Join(configHome, AppName)
		}
		return filepath.Join(homeDir, ".config", AppName)
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, AppName)
		}
		return filepath.Join(homeDir, "AppData", "Roaming", AppName)
	default:
		return filepath.Join(homeDir, ".config", AppName)
	}
}

// GetDataDir resolves the shard directory. It tries, in order:
// 1. the user-specified path, absolute or relative to the working directory
// 2. the path relative to the executable directory
// 3. data/ next to the executable, in its parent and in the config dir
//
// Every candidate is also tried with Doxygen's html/search and search
// subdirectories appended.
func (pr *PathResolver) GetDataDir(userSpecifiedPath string) (string, error) {
	candidates := pr.dataDirCandidates(userSpecifiedPath)
	for _, path := range candidates {
		if pr.IsValidDataDir(path) {
			log.Debugf("Found valid data directory: %s", path)
			return path, nil
		}
		log.Debugf("Data directory candidate not valid: %s", path)
	}
	return "", fmt.Errorf("%w (tried %s)", ErrNoDataDir, strings.Join(candidates, ", "))
}

// IsValidDataDir checks if a directory contains files matching a marker
func (pr *PathResolver) IsValidDataDir(path string) bool {
	if !IsDir(path) {
		return false
	}
	for _, marker := range pr.markers {
		matches, err := filepath.Glob(filepath.Join(path, marker))
		if err == nil && len(matches) > 0 {
			return true
		}
	}
	return false
}

// GetConfigDir returns the config directory
func (pr *PathResolver) GetConfigDir() string {
	return pr.configDir
}

// GetExecutableDir returns the directory containing the executable
func (pr *PathResolver) GetExecutableDir() string {
	return pr.executableDir
}

// GetRuntimeInfo returns debug information about the current runtime environment
func (pr *PathResolver) GetRuntimeInfo() map[string]string {
	cwd, _ := os.Getwd()

	info := map[string]string{
		"executable_dir": pr.executableDir,
		"current_dir":    cwd,
		"home_dir":       pr.homeDir,
		"config_dir":     pr.configDir,
		"os":             runtime.GOOS,
		"arch":           runtime.GOARCH,
	}
	for _, envVar := range []string{"HOME", "XDG_CONFIG_HOME", "APPDATA"} {
		if value := os.Getenv(envVar); value != "" {
			info["env_"+strings.ToLower(envVar)] = value
		}
	}
	return info
}

func (pr *PathResolver) dataDirCandidates(userSpecifiedPath string) []string {
	var bases []string
	if userSpecifiedPath != "" {
		if filepath.IsAbs(userSpecifiedPath) {
			bases = append(bases, userSpecifiedPath)
		} else {
			if cwd, err := os.Getwd(); err == nil {
				bases = append(bases, filepath.Join(cwd, userSpecifiedPath))
			}
			bases = append(bases, filepath.Join(pr.executableDir, userSpecifiedPath))
		}
	}
	bases = append(bases,
		filepath.Join(pr.executableDir, "data"),
		filepath.Join(filepath.Dir(pr.executableDir), "data"),
		filepath.Join(pr.configDir, "data"),
	)

	seen := make(map[string]bool)
	var candidates []string
	for _, base := range bases {
		for _, dir := range []string{base, filepath.Join(base, "html", "search"), filepath.Join(base, "search")} {
			if !seen[dir] {
				seen[dir] = true
				candidates = append(candidates, dir)
			}
		}
	}
	return candidates
}
