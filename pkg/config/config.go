// Package config provides configuration management for peervote.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables that override file settings.
const (
	EnvAPIURL     = "PEERVOTE_API_URL"
	EnvDBPath     = "PEERVOTE_DB_PATH"
	EnvAuthScheme = "PEERVOTE_AUTH_SCHEME"
	EnvConfig     = "PEERVOTE_CONFIG" // config file location, read by the CLI
)

// DefaultAPIURL is used when neither the config file nor the environment names a backend.
const DefaultAPIURL = "http://localhost:8000"

// Config represents the client configuration.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Storage StorageConfig `yaml:"storage"`
	Voting  VotingConfig  `yaml:"voting"`
	Verbose bool          `yaml:"-"` // set via CLI flag
}

// APIConfig contains backend connection settings.
type APIConfig struct {
	URL        string        `yaml:"url"`         // Backend base URL (default: http://localhost:8000)
	AuthScheme string        `yaml:"auth_scheme"` // Authorization header scheme (default: JWT)
	Timeout    time.Duration `yaml:"timeout"`     // Per-request timeout (default: 15s)
}

// StorageConfig contains local state settings.
type StorageConfig struct {
	Path string `yaml:"path"` // SQLite file holding the stored credential
}

// VotingConfig paces batch voting.
type VotingConfig struct {
	RatePerSecond float64 `yaml:"rate_per_second"` // default: 5
	Burst         int     `yaml:"burst"`           // default: 1
}

// DefaultDir returns the directory holding the config file and local state.
func DefaultDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".peervote"
	}
	return filepath.Join(dir, "peervote")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}

// LoadConfig loads configuration from a YAML file and applies environment overrides.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.ApplyEnv(os.LookupEnv)
	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// DefaultConfig returns a configuration with environment overrides and default values.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.ApplyEnv(os.LookupEnv)
	cfg.setDefaults()
	return cfg
}

// ApplyEnv overrides file settings with environment variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvAPIURL); ok && v != "" {
		c.API.URL = v
	}
	if v, ok := lookup(EnvDBPath); ok && v != "" {
		c.Storage.Path = v
	}
	if v, ok := lookup(EnvAuthScheme); ok && v != "" {
		c.API.AuthScheme = v
	}
}

// setDefaults sets default values for missing config fields.
func (c *Config) setDefaults() {
	if c.API.URL == "" {
		c.API.URL = DefaultAPIURL
	}
	c.API.URL = strings.TrimRight(c.API.URL, "/")
	if c.API.AuthScheme == "" {
		c.API.AuthScheme = "JWT"
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = 15 * time.Second
	}
	if c.Storage.Path == "" {
		c.Storage.Path = filepath.Join(DefaultDir(), "peervote.db")
	}
	if c.Voting.RatePerSecond == 0 {
		c.Voting.RatePerSecond = 5
	}
	if c.Voting.Burst == 0 {
		c.Voting.Burst = 1
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.URL)
	if err != nil {
		return fmt.Errorf("api.url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api.url must use http or https, got %q", c.API.URL)
	}
	if u.Host == "" {
		return fmt.Errorf("api.url must include a host")
	}
	if strings.ContainsAny(c.API.AuthScheme, " \t") {
		return fmt.Errorf("api.auth_scheme must be a single word")
	}
	if c.API.Timeout < 0 {
		return fmt.Errorf("api.timeout must not be negative")
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required")
	}
	if c.Voting.RatePerSecond < 0 {
		return fmt.Errorf("voting.rate_per_second must not be negative")
	}
	if c.Voting.Burst < 1 {
		return fmt.Errorf("voting.burst must be at least 1")
	}
	return nil
}
