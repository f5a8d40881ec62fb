package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Config describes the application level configuration loaded from json.
type Config struct {
	DataDir string       `json:"data_dir"`
	Scrape  ScrapeConfig `json:"scrape"`
	S3      S3Config     `json:"s3"`
}

// ScrapeConfig holds options for fetching Workshop pages and caching results.
type ScrapeConfig struct {
	TimeoutSeconds int    `json:"timeout_seconds"`
	UserAgent      string `json:"user_agent"`
	CachePath      string `json:"cache_path"`
	CacheTTLHours  int    `json:"cache_ttl_hours"`
}

// S3Config holds the options for accessing the object store used by the
// publish and pull commands.
type S3Config struct {
	Host            string `json:"host"`
	Bucket          string `json:"bucket"`
	Region          string `json:"region"`
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	SessionToken    string `json:"session_token"`
	ForcePathStyle  bool   `json:"force_path_style"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	return &Config{
		DataDir: ".",
		Scrape: ScrapeConfig{
			TimeoutSeconds: 20,
			CacheTTLHours:  24,
		},
	}
}

// LoadDefault loads configuration from the conventional search paths, falling
// back to built-in defaults when no config file is present.
func LoadDefault() (*Config, error) {
	cfg, err := LoadFirst("pzworkshop.json", "/etc/pzworkshop.json")
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// LoadFirst tries to load configuration from the given paths, returning the
// first successfully decoded configuration. If none of the paths contain a
// readable config, an error is returned.
func LoadFirst(paths ...string) (*Config, error) {
	var lastErr error
	for _, path := range paths {
		if path == "" {
			continue
		}
		cfg, err := Load(path)
		if errors.Is(err, os.ErrNotExist) {
			lastErr = err
			continue
		}
		if err != nil {
			return nil, err
		}
		return cfg, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("config not found in paths: %v", paths)
	}
	return nil, lastErr
}

// Load reads configuration from a single json file path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate performs basic validation of the configuration.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("config.data_dir must be set")
	}
	if c.Scrape.TimeoutSeconds < 0 {
		return errors.New("config.scrape.timeout_seconds must not be negative")
	}
	if c.Scrape.CacheTTLHours < 0 {
		return errors.New("config.scrape.cache_ttl_hours must not be negative")
	}
	return nil
}

// CachePath resolves the scrape cache database location, defaulting to a file
// inside the data directory.
func (c *Config) CachePath() string {
	if c.Scrape.CachePath != "" {
		return c.Scrape.CachePath
	}
	return filepath.Join(c.DataDir, "PageCache.db")
}
