// Package config loads the klinehub YAML configuration and applies
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for klinehub.
type Config struct {
	Server  Server        `yaml:"server"`
	Bybit   Bybit         `yaml:"bybit"`
	Redis   Redis         `yaml:"redis"`
	Session SessionConfig `yaml:"session"`
	Fetch   Fetch         `yaml:"fetch"`
	Series  Series        `yaml:"series"`
	Watch   []WatchTarget `yaml:"watch"`
	Logging Logging       `yaml:"logging"`
	Export  Export        `yaml:"export"`
}

// Server holds the HTTP listener configuration.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Bybit holds endpoints for the upstream market-data venue.
type Bybit struct {
	RestURL  string `yaml:"rest_url"`
	WSURL    string `yaml:"ws_url"`
	Category string `yaml:"category"`
}

// Redis holds the key-value store connection settings. An empty URL disables
// the threshold/signal stores.
type Redis struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

// SessionConfig anchors the 24-hour trading session.
type SessionConfig struct {
	UTCOffsetHours int `yaml:"utc_offset_hours"`
	AnchorHour     int `yaml:"anchor_hour"`
	AnchorMinute   int `yaml:"anchor_minute"`
}

// Fetch controls the paged history backfill.
type Fetch struct {
	TargetCount     int `yaml:"target_count"`
	PageLimit       int `yaml:"page_limit"`
	PageBudget      int `yaml:"page_budget"`
	TimeoutSec      int `yaml:"timeout_sec"`
	RateLimitPerMin int `yaml:"rate_limit_per_min"`
}

// Series bounds the in-memory bar series.
type Series struct {
	MaxLen int `yaml:"max_len"`
}

// WatchTarget is one (symbol, interval) pair to track.
type WatchTarget struct {
	Symbol   string `yaml:"symbol"`
	Interval string `yaml:"interval"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Export holds defaults for the fetch CLI.
type Export struct {
	Dir    string `yaml:"dir"`
	Format string `yaml:"format"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it,
// applies defaults, and then applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	applyDefaults(cfg)
	applyEnvOverrides(cfg)

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Bybit.RestURL == "" {
		cfg.Bybit.RestURL = "https://api.bybit.com"
	}
	if cfg.Bybit.WSURL == "" {
		cfg.Bybit.WSURL = "wss://stream.bybit.com/v5/public/linear"
	}
	if cfg.Bybit.Category == "" {
		cfg.Bybit.Category = "linear"
	}
	if cfg.Session.UTCOffsetHours == 0 {
		cfg.Session.UTCOffsetHours = 9
	}
	if cfg.Session.AnchorHour == 0 && cfg.Session.AnchorMinute == 0 {
		cfg.Session.AnchorHour = 6
		cfg.Session.AnchorMinute = 50
	}
	if cfg.Fetch.TargetCount == 0 {
		cfg.Fetch.TargetCount = 2000
	}
	if cfg.Fetch.PageLimit == 0 {
		cfg.Fetch.PageLimit = 1000
	}
	if cfg.Fetch.PageBudget == 0 {
		cfg.Fetch.PageBudget = 50
	}
	if cfg.Fetch.TimeoutSec == 0 {
		cfg.Fetch.TimeoutSec = 10
	}
	if cfg.Fetch.RateLimitPerMin == 0 {
		cfg.Fetch.RateLimitPerMin = 120
	}
	if cfg.Series.MaxLen == 0 {
		cfg.Series.MaxLen = 5000
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Export.Dir == "" {
		cfg.Export.Dir = "data/export"
	}
	if cfg.Export.Format == "" {
		cfg.Export.Format = "parquet"
	}
}

// applyEnvOverrides checks well-known environment variables and overrides
// the corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("KLINEHUB_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("KLINEHUB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("BYBIT_REST_URL"); v != "" {
		cfg.Bybit.RestURL = v
	}
	if v := os.Getenv("BYBIT_WS_URL"); v != "" {
		cfg.Bybit.WSURL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("EXPORT_DIR"); v != "" {
		cfg.Export.Dir = v
	}
}
