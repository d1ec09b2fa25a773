package config

import (
	"testing"
	"time"
)

func TestLoadDevelopmentDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Providers.PriceCacheTTL != 2*time.Minute {
		t.Fatalf("expected 2m price cache ttl, got %s", cfg.Providers.PriceCacheTTL)
	}
	if cfg.Providers.Timeout != 5*time.Second {
		t.Fatalf("expected 5s provider timeout, got %s", cfg.Providers.Timeout)
	}
	if cfg.JWTSecret == "" || cfg.WalletEncryptionKey == "" {
		t.Fatalf("expected development secrets to be filled in")
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("unexpected address %s", cfg.Address())
	}
}

func TestLoadProductionRequiresStores(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	if _, err := Load(); err == nil {
		t.Fatalf("expected missing DATABASE_URL error")
	}
}

func TestLoadDurationOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("SHUTDOWN_TIMEOUT_SECONDS", "3")
	t.Setenv("ACCESS_TOKEN_TTL", "30m")
	t.Setenv("PRICE_CACHE_TTL", "45s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ShutdownPeriod != 3*time.Second {
		t.Fatalf("expected 3s shutdown, got %s", cfg.ShutdownPeriod)
	}
	if cfg.AccessTokenTTL != 30*time.Minute {
		t.Fatalf("expected 30m access ttl, got %s", cfg.AccessTokenTTL)
	}
	if cfg.Providers.PriceCacheTTL != 45*time.Second {
		t.Fatalf("expected 45s cache ttl, got %s", cfg.Providers.PriceCacheTTL)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("IDEMPOTENCY_TTL", "soon")

	if _, err := Load(); err == nil {
		t.Fatalf("expected invalid duration error")
	}
}
