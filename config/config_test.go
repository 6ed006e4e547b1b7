package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"CATEGORY_LIMIT", "APPLY_MODE", "RENDER_WORKERS", "CACHE_TTL_SECONDS", "POSTGRES_ENABLED"} {
		t.Setenv(k, "")
	}
	cfg := FromEnv()
	if cfg.CategoryLimit != 4 {
		t.Errorf("CategoryLimit: got %d", cfg.CategoryLimit)
	}
	if cfg.RenderWorkers != 1 {
		t.Errorf("RenderWorkers: got %d", cfg.RenderWorkers)
	}
	if cfg.CacheTTL != 5*time.Minute {
		t.Errorf("CacheTTL: got %v", cfg.CacheTTL)
	}
	if cfg.Batched() || cfg.PostgresEnabled {
		t.Error("defaults should be live mode without PostgreSQL")
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("CATEGORY_LIMIT", "6")
	t.Setenv("APPLY_MODE", "BATCHED")
	t.Setenv("POSTGRES_ENABLED", "true")
	t.Setenv("TOP_N", "not-a-number")

	cfg := FromEnv()
	if cfg.CategoryLimit != 6 {
		t.Errorf("CategoryLimit: got %d", cfg.CategoryLimit)
	}
	if !cfg.Batched() {
		t.Errorf("ApplyMode %q should be batched", cfg.ApplyMode)
	}
	if !cfg.PostgresEnabled {
		t.Error("PostgresEnabled should be true")
	}
	if cfg.TopN != 10 {
		t.Errorf("invalid TOP_N should fall back to 10, got %d", cfg.TopN)
	}
}

func TestDSN(t *testing.T) {
	cfg := &Config{
		PostgresHost: "db", PostgresPort: "5433", PostgresUser: "u",
		PostgresPassword: "p", PostgresDB: "apps", PostgresSSLMode: "disable",
	}
	want := "host=db port=5433 user=u password=p dbname=apps sslmode=disable"
	if got := cfg.DSN(); got != want {
		t.Errorf("DSN:\n got %q\nwant %q", got, want)
	}
}
