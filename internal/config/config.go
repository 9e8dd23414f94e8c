// Package config loads tool-level configuration: the cache root for
// repository mirrors and the settings for recruiting-brief generation.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const appDirName = "git-recruiting"

// configPathEnvVar points at a YAML config file when no --config flag is
// given.
const configPathEnvVar = "GIT_RECRUITING_CONFIG"

// Config contains the configuration parameters for the tool.
type Config struct {
	CacheRoot string      `yaml:"cache_root"`
	Brief     BriefConfig `yaml:"brief"`
}

// BriefConfig controls recruiting-brief generation.
type BriefConfig struct {
	ChunkSize       int    `yaml:"chunk_size"`
	GeminiModel     string `yaml:"gemini_model"`
	CredentialsFile string `yaml:"credentials_file"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		CacheRoot: DefaultCacheRoot(),
		Brief: BriefConfig{
			ChunkSize:   40,
			GeminiModel: "gemini-1.5-flash",
		},
	}
}

// Load reads and parses the YAML configuration file, filling in defaults for
// anything unset. An empty path falls back to the GIT_RECRUITING_CONFIG
// environment variable; if neither names a file, defaults are returned.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = os.Getenv(configPathEnvVar)
	}
	cfg := Default()
	if configPath == "" {
		return cfg, nil
	}

	cleanedPath := filepath.Clean(configPath)
	// #nosec G304 -- The config path comes from the user's own flag or env var.
	yamlFile, err := os.ReadFile(cleanedPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", cleanedPath, err)
	}

	if err := yaml.Unmarshal(yamlFile, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML from %s: %w", cleanedPath, err)
	}

	if cfg.CacheRoot == "" {
		cfg.CacheRoot = DefaultCacheRoot()
	}
	if cfg.Brief.ChunkSize <= 0 {
		return nil, fmt.Errorf("brief.chunk_size must be positive in %s", cleanedPath)
	}
	if cfg.Brief.GeminiModel == "" {
		return nil, fmt.Errorf("brief.gemini_model cannot be empty in %s", cleanedPath)
	}

	return cfg, nil
}

// DefaultCacheRoot returns the mirror cache directory following the XDG base
// directory convention. Mirrors are kept across sessions, so XDG_DATA_HOME
// is preferred over a true cache location when XDG_CACHE_HOME is unset.
func DefaultCacheRoot() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, appDirName)
	}
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, appDirName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), appDirName)
	}
	return filepath.Join(home, ".local", "share", appDirName)
}
