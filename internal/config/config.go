// Package config handles bibsync run configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the run settings. Zero-valued fields are filled with
// defaults on load; CLI flags override loaded values.
type Config struct {
	Input      string   `yaml:"input,omitempty"`
	Output     string   `yaml:"output,omitempty"`
	FailedKeys string   `yaml:"failed_keys,omitempty"`
	LogFile    string   `yaml:"log_file,omitempty"`
	BaseURL    string   `yaml:"base_url,omitempty"`
	MaxRetries int      `yaml:"max_retries,omitempty"`
	RetryDelay Duration `yaml:"retry_delay,omitempty"`
	EntryDelay Duration `yaml:"entry_delay,omitempty"`
	CachePath  string   `yaml:"cache_path,omitempty"`
	NoCache    bool     `yaml:"no_cache,omitempty"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Input:      "refs.bib",
		Output:     "refs_updated.bib",
		FailedKeys: "failed_keys.txt",
		LogFile:    "bibsync.log",
		BaseURL:    "https://dblp.org",
		MaxRetries: 5,
		RetryDelay: Duration(2 * time.Second),
		EntryDelay: Duration(1 * time.Second),
		CachePath:  ".bibsync/cache.db",
	}
}

// Load reads a YAML config file and fills unset fields with defaults.
// A missing file is not an error: the defaults are returned.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading %s: %w", path, err)
	}

	var loaded Config
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.merge(loaded)
	return cfg, nil
}

// merge overlays non-zero fields from other onto the receiver.
func (c *Config) merge(other Config) {
	if other.Input != "" {
		c.Input = other.Input
	}
	if other.Output != "" {
		c.Output = other.Output
	}
	if other.FailedKeys != "" {
		c.FailedKeys = other.FailedKeys
	}
	if other.LogFile != "" {
		c.LogFile = other.LogFile
	}
	if other.BaseURL != "" {
		c.BaseURL = other.BaseURL
	}
	if other.MaxRetries > 0 {
		c.MaxRetries = other.MaxRetries
	}
	if other.RetryDelay > 0 {
		c.RetryDelay = other.RetryDelay
	}
	if other.EntryDelay > 0 {
		c.EntryDelay = other.EntryDelay
	}
	if other.CachePath != "" {
		c.CachePath = other.CachePath
	}
	if other.NoCache {
		c.NoCache = true
	}
}
