// Package config provides configuration loading and structs for the library server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug   bool          `yaml:"debug"`
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Index   IndexConfig   `yaml:"index"`
	Search  SearchConfig  `yaml:"search"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the database, the bleve index, and the
// tuning profile directory.
type StorageConfig struct {
	DatabasePath   string `yaml:"database_path"`
	BleveIndexPath string `yaml:"bleve_index_path"`
	ProfilesDir    string `yaml:"profiles_dir"`
}

// IndexConfig selects the full-text index backend.
type IndexConfig struct {
	// Backend is "fts5" (default, shares the SQLite database) or "bleve".
	Backend string `yaml:"backend"`
}

// SearchConfig holds search limits.
type SearchConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`
	// FetchLimit bounds how many candidates one search pulls from the
	// index before grouping. Hits beyond it are invisible to ranking.
	FetchLimit int `yaml:"fetch_limit"`
	// TopQuotes caps how many quotes a book group retains.
	TopQuotes int `yaml:"top_quotes"`
}

// Load reads and parses the config file at path, applies defaults, and
// expands storage paths relative to the config directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)
	cfg.Storage.ProfilesDir = expandPath(cfg.Storage.ProfilesDir, configDir)

	if cfg.Index.Backend != BackendFTS5 && cfg.Index.Backend != BackendBleve {
		return nil, fmt.Errorf("unknown index backend %q", cfg.Index.Backend)
	}
	return &cfg, nil
}

// expandPath converts a path to absolute. Paths starting with "./" are
// relative to configDir; other relative paths are relative to the home
// directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
