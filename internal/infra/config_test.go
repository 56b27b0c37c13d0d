package infra

import (
	"os"
	"path/filepath"
	"testing"

	"exchange_go/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
app:
  name: exchange
  version: "1.0"
server:
  addr: ":9999"
database:
  path: /tmp/exchange.db
logging:
  level: debug
market:
  initial_price_micros: 100000000
  history_size: 25
trading:
  seed_lot_qty: 500
  seed_lot_price_micros: 100000000
risk:
  max_order_size: 100
feed:
  brokers: ["localhost:9092"]
  topic: trades
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Addr != ":9999" || cfg.Market.HistorySize != 25 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Risk.MaxOrderSize != 100 {
		t.Fatalf("MaxOrderSize = %d, want 100", cfg.Risk.MaxOrderSize)
	}
	// Unset risk fields keep their unlimited default.
	if cfg.Risk.MaxOpenPosition != domain.Unlimited {
		t.Fatalf("MaxOpenPosition = %d, want Unlimited", cfg.Risk.MaxOpenPosition)
	}
	if cfg.Feed.Topic != "trades" {
		t.Fatalf("feed topic = %q", cfg.Feed.Topic)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":8080"
database:
  path: /tmp/exchange.db
`)
	t.Setenv("EXCHANGE_SERVER_ADDR", ":7777")
	t.Setenv("EXCHANGE_LOG_LEVEL", "warn")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Addr != ":7777" {
		t.Fatalf("addr = %q, want env override", cfg.Server.Addr)
	}
	if cfg.Logging.Level != "warn" {
		t.Fatalf("level = %q, want env override", cfg.Logging.Level)
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad log level", "logging:\n  level: loud\n"},
		{"empty db path", "database:\n  path: \"\"\n"},
		{"brokers without topic", "feed:\n  brokers: [\"localhost:9092\"]\n"},
		{"zero history", "market:\n  history_size: -1\n"},
		{"burst without rate", "server:\n  addr: \":8080\"\n  rate_burst: 5\n"},
		{"negative rate", "server:\n  addr: \":8080\"\n  rate_burst: 5\n  rate_per_sec: -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.body)
			if _, err := LoadConfig(path); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestConfigRateLimiter(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.RateLimiter() != nil {
		t.Fatal("expected nil limiter by default")
	}

	cfg.Server.RateBurst = 10
	cfg.Server.RatePerSec = 100
	if cfg.RateLimiter() == nil {
		t.Fatal("expected limiter when configured")
	}
}
