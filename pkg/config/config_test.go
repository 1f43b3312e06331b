package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv(EnvAPIURL, "")
	t.Setenv(EnvDBPath, "")
	t.Setenv(EnvAuthScheme, "")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
api:
  url: https://vote.example.com/
  auth_scheme: Bearer
  timeout: 3s
storage:
  path: /tmp/pv.db
voting:
  rate_per_second: 2
  burst: 4
`
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.API.URL != "https://vote.example.com" {
		t.Errorf("API.URL = %q, want trailing slash trimmed", cfg.API.URL)
	}
	if cfg.API.AuthScheme != "Bearer" {
		t.Errorf("API.AuthScheme = %q, want Bearer", cfg.API.AuthScheme)
	}
	if cfg.API.Timeout != 3*time.Second {
		t.Errorf("API.Timeout = %v, want 3s", cfg.API.Timeout)
	}
	if cfg.Storage.Path != "/tmp/pv.db" {
		t.Errorf("Storage.Path = %q", cfg.Storage.Path)
	}
	if cfg.Voting.RatePerSecond != 2 || cfg.Voting.Burst != 4 {
		t.Errorf("Voting = %+v", cfg.Voting)
	}
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	t.Setenv(EnvAPIURL, "http://api.internal:9000")
	t.Setenv(EnvDBPath, "")
	t.Setenv(EnvAuthScheme, "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("api:\n  url: http://file.example.com\n"), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.API.URL != "http://api.internal:9000" {
		t.Errorf("API.URL = %q, want env value", cfg.API.URL)
	}
}

func TestLoadConfig_Missing(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestDefaultConfig(t *testing.T) {
	t.Setenv(EnvAPIURL, "")
	t.Setenv(EnvDBPath, "")
	t.Setenv(EnvAuthScheme, "")

	cfg := DefaultConfig()
	if cfg.API.URL != DefaultAPIURL {
		t.Errorf("API.URL = %q, want %q", cfg.API.URL, DefaultAPIURL)
	}
	if cfg.API.AuthScheme != "JWT" {
		t.Errorf("API.AuthScheme = %q, want JWT", cfg.API.AuthScheme)
	}
	if !strings.HasSuffix(cfg.Storage.Path, "peervote.db") {
		t.Errorf("Storage.Path = %q", cfg.Storage.Path)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"ftp scheme", func(c *Config) { c.API.URL = "ftp://x" }, "http or https"},
		{"no host", func(c *Config) { c.API.URL = "http://" }, "host"},
		{"scheme with space", func(c *Config) { c.API.AuthScheme = "JWT x" }, "single word"},
		{"negative timeout", func(c *Config) { c.API.Timeout = -time.Second }, "timeout"},
		{"zero burst", func(c *Config) { c.Voting.Burst = 0 }, "burst"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.setDefaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}
