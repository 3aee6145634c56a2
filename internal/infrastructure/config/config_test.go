package config_test

import (
	"testing"
	"time"

	"github.com/danhlc/poslite/internal/infrastructure/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SQLITE_PATH", "")
	t.Setenv("REDIS_URL", "")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.DatabaseDriver != config.DriverSQLite {
		t.Fatalf("expected default driver sqlite, got %q", cfg.DatabaseDriver)
	}

	if cfg.SQLitePath != "poslite.db" {
		t.Fatalf("expected default sqlite path, got %q", cfg.SQLitePath)
	}

	if cfg.RedisURL != "" {
		t.Fatalf("expected redis to be disabled by default, got %q", cfg.RedisURL)
	}

	if cfg.HTTPPort != "8080" {
		t.Fatalf("expected default HTTP port 8080, got %s", cfg.HTTPPort)
	}

	if cfg.LedgerMaxRetries != 3 {
		t.Fatalf("expected 3 ledger retries, got %d", cfg.LedgerMaxRetries)
	}

	if cfg.IdempotencyTTL != 24*time.Hour {
		t.Fatalf("expected idempotency TTL 24h, got %s", cfg.IdempotencyTTL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("REDIS_URL", "redis://example")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DATABASE_TIMEOUT", "45s")
	t.Setenv("LEDGER_MAX_RETRIES", "7")
	t.Setenv("HTTP_RATE_LIMIT_RPS", "2.5")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.DatabaseURL != "postgres://example" {
		t.Fatalf("expected custom database URL, got %s", cfg.DatabaseURL)
	}

	if cfg.RedisURL != "redis://example" {
		t.Fatalf("expected custom redis URL, got %s", cfg.RedisURL)
	}

	if cfg.HTTPPort != "9090" {
		t.Fatalf("expected HTTP port override, got %s", cfg.HTTPPort)
	}

	if cfg.DatabaseTimeout != 45*time.Second {
		t.Fatalf("expected database timeout override, got %s", cfg.DatabaseTimeout)
	}

	if cfg.LedgerMaxRetries != 7 || cfg.HTTPRateLimitRPS != 2.5 {
		t.Fatalf("expected ledger and rate limit overrides, got %d %v", cfg.LedgerMaxRetries, cfg.HTTPRateLimitRPS)
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "mysql")

	if _, err := config.Load(); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	t.Setenv("HTTP_READ_TIMEOUT", "soon")

	if _, err := config.Load(); err == nil {
		t.Fatalf("expected parse error for invalid duration")
	}
}
