package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/newthinker/stockwatch/internal/core"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Identity   IdentityConfig   `mapstructure:"identity"`
	Store      StoreConfig      `mapstructure:"store"`
	MarketData MarketDataConfig `mapstructure:"market_data"`
	Search     SearchConfig     `mapstructure:"search"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

type ServerConfig struct {
	Host   string `mapstructure:"host"`
	Port   int    `mapstructure:"port"`
	Mode   string `mapstructure:"mode"`
	APIKey string `mapstructure:"api_key"`
}

// IdentityConfig maps authenticated principals (e-mail addresses) to store user keys.
type IdentityConfig struct {
	Header string        `mapstructure:"header"`
	Users  []UserMapping `mapstructure:"users"`
}

// UserMapping binds a provider identity to a store user key.
type UserMapping struct {
	Email string `mapstructure:"email"`
	ID    string `mapstructure:"id"`
}

type StoreConfig struct {
	Type  string      `mapstructure:"type"` // "memory", "redis", "localfs" or "s3"
	Path  string      `mapstructure:"path"` // For localfs
	Redis RedisConfig `mapstructure:"redis"`
	S3    S3Config    `mapstructure:"s3"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// MarketDataConfig selects and configures the quote providers.
type MarketDataConfig struct {
	Provider string        `mapstructure:"provider"`
	Fallback []string      `mapstructure:"fallback"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Popular  []string      `mapstructure:"popular"`
	Finnhub  FinnhubConfig `mapstructure:"finnhub"`
	Yahoo    YahooConfig   `mapstructure:"yahoo"`
}

type FinnhubConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

type YahooConfig struct {
	ChartURL  string `mapstructure:"chart_url"`
	SearchURL string `mapstructure:"search_url"`
}

// SearchConfig holds instrument search settings.
type SearchConfig struct {
	Debounce    time.Duration `mapstructure:"debounce"`
	PreviewSize int           `mapstructure:"preview_size"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from file on top of Defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v, Defaults())

	// Support environment variable overrides
	v.SetEnvPrefix("STOCKWATCH")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.mode", d.Server.Mode)
	v.SetDefault("identity.header", d.Identity.Header)
	v.SetDefault("store.type", d.Store.Type)
	v.SetDefault("store.redis.prefix", d.Store.Redis.Prefix)
	v.SetDefault("market_data.provider", d.MarketData.Provider)
	v.SetDefault("market_data.timeout", d.MarketData.Timeout)
	v.SetDefault("market_data.popular", d.MarketData.Popular)
	v.SetDefault("market_data.finnhub.base_url", d.MarketData.Finnhub.BaseURL)
	v.SetDefault("market_data.yahoo.chart_url", d.MarketData.Yahoo.ChartURL)
	v.SetDefault("market_data.yahoo.search_url", d.MarketData.Yahoo.SearchURL)
	v.SetDefault("search.debounce", d.Search.Debounce)
	v.SetDefault("search.preview_size", d.Search.PreviewSize)
	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.path", d.Metrics.Path)
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Mode: "release",
		},
		Identity: IdentityConfig{
			Header: "X-User-Email",
		},
		Store: StoreConfig{
			Type: "memory",
			Redis: RedisConfig{
				Prefix: "stockwatch",
			},
		},
		MarketData: MarketDataConfig{
			Provider: "finnhub",
			Timeout:  10 * time.Second,
			Popular: []string{
				"AAPL", "MSFT", "GOOGL", "AMZN", "TSLA",
				"META", "NVDA", "NFLX", "ORCL", "CRM",
			},
			Finnhub: FinnhubConfig{
				BaseURL: "https://finnhub.io/api/v1",
			},
			Yahoo: YahooConfig{
				ChartURL:  "https://query1.finance.yahoo.com/v8/finance/chart",
				SearchURL: "https://query1.finance.yahoo.com/v1/finance/search",
			},
		},
		Search: SearchConfig{
			Debounce:    300 * time.Millisecond,
			PreviewSize: 10,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}

	switch c.Store.Type {
	case "", "memory":
	case "redis":
		if c.Store.Redis.Addr == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("redis addr required when store type is redis"))
		}
	case "localfs":
		if c.Store.Path == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("store path required when store type is localfs"))
		}
	case "s3":
		if c.Store.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("s3 bucket required when store type is s3"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown store type %q", c.Store.Type))
	}

	providers := append([]string{c.MarketData.Provider}, c.MarketData.Fallback...)
	for _, p := range providers {
		switch p {
		case "finnhub":
			if c.MarketData.Finnhub.APIKey == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("finnhub api_key required when finnhub provider is used"))
			}
		case "yahoo":
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("unknown market data provider %q", p))
		}
	}

	for i, u := range c.Identity.Users {
		if u.Email == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("identity.users[%d] has no email", i))
		}
	}

	if c.Search.Debounce < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("search debounce cannot be negative, got %s", c.Search.Debounce))
	}
	if c.Search.PreviewSize < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("search preview_size cannot be negative, got %d", c.Search.PreviewSize))
	}

	return nil
}
