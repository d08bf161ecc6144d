package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chatcore-ai/chatcore/pkg/errs"
)

// Config holds all chatcore configuration. It is constructed once at
// process start and passed into the orchestrator and its dependencies;
// nothing reads configuration ambiently after that.
type Config struct {
	Listen   string         `yaml:"listen"`
	LogLevel string         `yaml:"log_level"`
	Storage  StorageConfig  `yaml:"storage"`
	Cache    CacheConfig    `yaml:"cache"`
	Provider ProviderConfig `yaml:"provider"`
}

// StorageConfig selects and configures the interaction store.
// Backend is "sqlite" or "dynamodb"; the choice is resolved exactly once
// at startup.
type StorageConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`     // sqlite database file
	Table   string `yaml:"table"`    // dynamodb table name
	Region  string `yaml:"region"`   // dynamodb region
	TTLDays int    `yaml:"ttl_days"` // dynamodb item expiry
}

// CacheConfig selects and configures the response cache.
// Backend is "memory" or "redis".
type CacheConfig struct {
	Backend    string        `yaml:"backend"`
	Addr       string        `yaml:"addr"`
	Password   string        `yaml:"password"`
	DB         int           `yaml:"db"`
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
}

// ProviderConfig selects and configures the text-generation provider.
// Type is "gemini" or "openrouter"; exactly one provider is active per
// deployment.
type ProviderConfig struct {
	Type    string        `yaml:"type"`
	Model   string        `yaml:"model"`
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Listen:   ":8080",
		LogLevel: "info",
		Storage: StorageConfig{
			Backend: "sqlite",
			Path:    "chat.db",
			Region:  "us-east-1",
			TTLDays: 30,
		},
		Cache: CacheConfig{
			Backend:    "memory",
			TTL:        time.Hour,
			MaxEntries: 1024,
		},
		Provider: ProviderConfig{
			Type:    "gemini",
			Model:   "gemini-2.0-flash",
			Timeout: 30 * time.Second,
		},
	}
}

// Load reads a YAML config file, expands environment variables, and
// validates the result. An empty path yields validated defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration. A process with an invalid config
// must not begin serving traffic.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "sqlite":
		if c.Storage.Path == "" {
			return errs.Configf("storage backend sqlite requires a path")
		}
	case "dynamodb":
		if c.Storage.Table == "" {
			return errs.Configf("storage backend dynamodb requires a table")
		}
		if c.Storage.Region == "" {
			return errs.Configf("storage backend dynamodb requires a region")
		}
	default:
		return errs.Configf("unknown storage backend %q (must be sqlite or dynamodb)", c.Storage.Backend)
	}

	switch c.Cache.Backend {
	case "memory":
	case "redis":
		if c.Cache.Addr == "" {
			return errs.Configf("cache backend redis requires an addr")
		}
	default:
		return errs.Configf("unknown cache backend %q (must be memory or redis)", c.Cache.Backend)
	}
	if c.Cache.TTL <= 0 {
		return errs.Configf("cache ttl must be positive")
	}
	if c.Cache.MaxEntries <= 0 {
		return errs.Configf("cache max_entries must be positive")
	}

	switch c.Provider.Type {
	case "gemini", "openrouter":
		if c.Provider.APIKey == "" {
			return errs.Configf("provider %s requires an api key", c.Provider.Type)
		}
	default:
		return errs.Configf("unknown provider type %q (must be gemini or openrouter)", c.Provider.Type)
	}
	if c.Provider.Model == "" {
		return errs.Configf("provider model must be set")
	}

	return nil
}
