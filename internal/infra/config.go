package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"exchange_go/internal/domain"
	"exchange_go/pkg/quant"
)

// Config holds every application setting. Values load from YAML first;
// environment variables override afterwards.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
		// Token bucket for mutating requests. Zero disables throttling.
		RateBurst  int     `yaml:"rate_burst"`
		RatePerSec float64 `yaml:"rate_per_sec"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`

	Market struct {
		InitialPriceMicros int64 `yaml:"initial_price_micros"`
		HistorySize        int   `yaml:"history_size"`
	} `yaml:"market"`

	Trading struct {
		SeedLotQty         int64 `yaml:"seed_lot_qty"`
		SeedLotPriceMicros int64 `yaml:"seed_lot_price_micros"`
	} `yaml:"trading"`

	Risk domain.RiskLimits `yaml:"risk"`

	Events struct {
		Buffer int `yaml:"buffer"`
	} `yaml:"events"`

	Feed struct {
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
	} `yaml:"feed"`
}

// DefaultConfig returns a runnable configuration with no risk limits set.
func DefaultConfig() *Config {
	var cfg Config
	cfg.App.Name = "exchange"
	cfg.App.Version = "dev"
	cfg.Server.Addr = ":8080"
	cfg.Database.Path = "exchange.db"
	cfg.Logging.Level = "info"
	cfg.Market.HistorySize = 50
	cfg.Trading.SeedLotQty = 1_000
	cfg.Trading.SeedLotPriceMicros = 100 * quant.PriceScale
	cfg.Risk = domain.UnlimitedRiskLimits()
	cfg.Events.Buffer = 256
	return &cfg
}

// RateLimiter builds the request limiter for the HTTP surface, or nil
// when throttling is disabled.
func (c *Config) RateLimiter() *RateLimiter {
	if c.Server.RateBurst <= 0 {
		return nil
	}
	return NewRateLimiter(c.Server.RateBurst, c.Server.RatePerSec)
}

// LoadConfig reads and parses the configuration file, applies environment
// overrides, and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	overrideWithEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server addr is required")
	}
	if c.Server.RateBurst < 0 || c.Server.RatePerSec < 0 {
		return fmt.Errorf("rate limit settings cannot be negative")
	}
	if (c.Server.RateBurst > 0) != (c.Server.RatePerSec > 0) {
		return fmt.Errorf("rate_burst and rate_per_sec must be set together")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	if c.Market.HistorySize <= 0 {
		return fmt.Errorf("market history size must be positive")
	}
	if c.Trading.SeedLotQty < 0 {
		return fmt.Errorf("seed lot quantity cannot be negative")
	}
	if c.Trading.SeedLotQty > 0 && c.Trading.SeedLotPriceMicros <= 0 {
		return fmt.Errorf("seed lot price must be positive when seeding inventory")
	}
	if c.Events.Buffer <= 0 {
		return fmt.Errorf("event buffer must be positive")
	}
	if len(c.Feed.Brokers) > 0 && c.Feed.Topic == "" {
		return fmt.Errorf("feed topic is required when brokers are set")
	}
	return nil
}

// overrideWithEnv applies EXCHANGE_* environment variables over the file
// values. Environment wins so deployments never need to edit the file.
func overrideWithEnv(cfg *Config) {
	if v := os.Getenv("EXCHANGE_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("EXCHANGE_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("EXCHANGE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("EXCHANGE_FEED_BROKERS"); v != "" {
		cfg.Feed.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("EXCHANGE_FEED_TOPIC"); v != "" {
		cfg.Feed.Topic = v
	}
	if v := os.Getenv("EXCHANGE_SEED_LOT_QTY"); v != "" {
		if qty, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Trading.SeedLotQty = qty
		}
	}
}
