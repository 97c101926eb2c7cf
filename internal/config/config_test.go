package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_FromFile(t *testing.T) {
	content := []byte(`
server:
  host: "127.0.0.1"
  port: 9090

identity:
  users:
    - email: "Alice@Example.com"
      id: "u-1"

store:
  type: redis
  redis:
    addr: "localhost:6379"

market_data:
  provider: yahoo
  timeout: 5s

search:
  debounce: 250ms
`)

	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(cfgPath, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Store.Type != "redis" || cfg.Store.Redis.Addr != "localhost:6379" {
		t.Errorf("unexpected store config: %+v", cfg.Store)
	}
	if cfg.MarketData.Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %s", cfg.MarketData.Timeout)
	}
	if cfg.Search.Debounce != 250*time.Millisecond {
		t.Errorf("expected 250ms debounce, got %s", cfg.Search.Debounce)
	}
	if len(cfg.Identity.Users) != 1 || cfg.Identity.Users[0].Email != "Alice@Example.com" || cfg.Identity.Users[0].ID != "u-1" {
		t.Errorf("expected user mapping, got %+v", cfg.Identity.Users)
	}

	// Unset keys fall back to defaults
	if cfg.Search.PreviewSize != 10 {
		t.Errorf("expected default preview size 10, got %d", cfg.Search.PreviewSize)
	}
	if cfg.Identity.Header != "X-User-Email" {
		t.Errorf("expected default identity header, got %q", cfg.Identity.Header)
	}
	if len(cfg.MarketData.Popular) != 10 {
		t.Errorf("expected 10 popular symbols, got %d", len(cfg.MarketData.Popular))
	}
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("TEST_FINNHUB_KEY", "secret")
	content := []byte(`
market_data:
  finnhub:
    api_key: "${TEST_FINNHUB_KEY}"
`)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.MarketData.Finnhub.APIKey != "secret" {
		t.Errorf("expected expanded api key, got %q", cfg.MarketData.Finnhub.APIKey)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Search.Debounce != 300*time.Millisecond {
		t.Errorf("expected default debounce 300ms, got %s", cfg.Search.Debounce)
	}
	if cfg.Store.Type != "memory" {
		t.Errorf("expected memory store, got %s", cfg.Store.Type)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		cfg := *Defaults()
		cfg.MarketData.Finnhub.APIKey = "key"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid config", mutate: func(c *Config) {}},
		{name: "invalid port - zero", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: true},
		{name: "invalid port - too high", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: true},
		{name: "finnhub without key", mutate: func(c *Config) { c.MarketData.Finnhub.APIKey = "" }, wantErr: true},
		{name: "yahoo needs no key", mutate: func(c *Config) {
			c.MarketData.Provider = "yahoo"
			c.MarketData.Finnhub.APIKey = ""
		}},
		{name: "unknown provider", mutate: func(c *Config) { c.MarketData.Provider = "bloomberg" }, wantErr: true},
		{name: "unknown fallback", mutate: func(c *Config) { c.MarketData.Fallback = []string{"iex"} }, wantErr: true},
		{name: "redis without addr", mutate: func(c *Config) { c.Store.Type = "redis" }, wantErr: true},
		{name: "localfs without path", mutate: func(c *Config) { c.Store.Type = "localfs" }, wantErr: true},
		{name: "s3 without bucket", mutate: func(c *Config) { c.Store.Type = "s3" }, wantErr: true},
		{name: "unknown store", mutate: func(c *Config) { c.Store.Type = "mongo" }, wantErr: true},
		{name: "user without email", mutate: func(c *Config) {
			c.Identity.Users = []UserMapping{{ID: "u-1"}}
		}, wantErr: true},
		{name: "negative debounce", mutate: func(c *Config) { c.Search.Debounce = -time.Second }, wantErr: true},
		{name: "negative preview", mutate: func(c *Config) { c.Search.PreviewSize = -1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
