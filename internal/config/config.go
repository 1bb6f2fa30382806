// Package config handles configuration loading from the environment and an
// optional YAML file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Feed describes one store price feed to ingest. Site-specific extraction
// happens behind the feed endpoint; the scraper only consumes normalized JSON.
type Feed struct {
	Slug  string `mapstructure:"slug"`
	URL   string `mapstructure:"url"`
	Pages int    `mapstructure:"pages"`
}

// Config holds all configuration values for the application.
type Config struct {
	// Database connection string. Must be a direct (non-pooled) connection:
	// the upsert path relies on RETURNING and per-item transactions.
	DatabaseURL string

	// Revalidation webhook fired after a run touches listings.
	RevalidateURL    string
	RevalidateSecret string

	// Fetch executor tunables, applied per store pipeline.
	FetchConcurrency int
	FetchDelay       time.Duration
	FetchTimeout     time.Duration

	// Observability
	MetricsAddr  string
	OTELEndpoint string
	LogLevel     string

	// Store feeds to run. Usually supplied via the config file.
	Feeds []Feed
}

// Load reads configuration from environment variables (PRICEWATCH_* plus
// DATABASE_URL) and, when path is non-empty or pricewatch.yaml exists in the
// working directory, a YAML config file. Environment values win.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("fetch_concurrency", 6)
	v.SetDefault("fetch_delay", 500*time.Millisecond)
	v.SetDefault("fetch_timeout", 30*time.Second)
	v.SetDefault("revalidate_url", "")
	v.SetDefault("revalidate_secret", "")
	v.SetDefault("metrics_addr", "")
	v.SetDefault("otel_endpoint", "localhost:4317")
	v.SetDefault("log_level", "info")

	v.SetEnvPrefix("PRICEWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// DATABASE_URL is conventionally unprefixed.
	_ = v.BindEnv("database_url", "DATABASE_URL", "PRICEWATCH_DATABASE_URL")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("pricewatch")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		// Missing default file is fine; env-only configuration is supported.
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	cfg := &Config{
		DatabaseURL:      v.GetString("database_url"),
		RevalidateURL:    v.GetString("revalidate_url"),
		RevalidateSecret: v.GetString("revalidate_secret"),
		FetchConcurrency: v.GetInt("fetch_concurrency"),
		FetchDelay:       v.GetDuration("fetch_delay"),
		FetchTimeout:     v.GetDuration("fetch_timeout"),
		MetricsAddr:      v.GetString("metrics_addr"),
		OTELEndpoint:     v.GetString("otel_endpoint"),
		LogLevel:         v.GetString("log_level"),
	}

	if err := v.UnmarshalKey("stores", &cfg.Feeds); err != nil {
		return nil, fmt.Errorf("invalid stores section: %w", err)
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("database_url is required (env: DATABASE_URL)")
	}
	if cfg.FetchConcurrency <= 0 {
		cfg.FetchConcurrency = 1
	}
	for _, f := range cfg.Feeds {
		if f.Slug == "" || f.URL == "" {
			return nil, fmt.Errorf("store feed entries need both slug and url")
		}
	}

	return cfg, nil
}
