package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromDefaults(t *testing.T) {
	cfg, err := LoadFrom(t.TempDir())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Promo.CommitMaxRetries != 3 {
		t.Fatalf("unexpected commit retries: %d", cfg.Promo.CommitMaxRetries)
	}
	if cfg.Promo.Generate.CodeLength != 8 || cfg.Promo.Generate.MaxBatch != 1000 {
		t.Fatalf("unexpected generate defaults: %+v", cfg.Promo.Generate)
	}
	if cfg.UserJWT.CookieName != "user_token" || cfg.JWT.CookieName != "admin_token" {
		t.Fatalf("unexpected cookie names: %s %s", cfg.JWT.CookieName, cfg.UserJWT.CookieName)
	}
	if cfg.Metrics.Path != "/metrics" {
		t.Fatalf("unexpected metrics path: %s", cfg.Metrics.Path)
	}
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	content := []byte("server:\n  port: \"9090\"\npromo:\n  commit_max_retries: 0\n  generate:\n    code_length: 12\n")
	if err := os.WriteFile(filepath.Join(dir, "config.yml"), content, 0o644); err != nil {
		t.Fatalf("write config failed: %v", err)
	}

	cfg, err := LoadFrom(dir)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Fatalf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Promo.CommitMaxRetries != 1 {
		t.Fatalf("expected retries normalized to 1, got %d", cfg.Promo.CommitMaxRetries)
	}
	if cfg.Promo.Generate.CodeLength != 12 {
		t.Fatalf("expected code length 12, got %d", cfg.Promo.Generate.CodeLength)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PROMO_CACHE_TTL_SECONDS", "5")
	cfg, err := LoadFrom(t.TempDir())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Promo.CacheTTLSeconds != 5 {
		t.Fatalf("expected env override 5, got %d", cfg.Promo.CacheTTLSeconds)
	}
}
