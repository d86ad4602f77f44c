package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("Expected default listen addr :8080, got %s", cfg.ListenAddr)
	}
	if cfg.TokenTTL() != 30*time.Minute {
		t.Errorf("Expected default token TTL 30m, got %v", cfg.TokenTTL())
	}
	if cfg.ScoringTimeout() != 30*time.Second {
		t.Errorf("Expected default scoring timeout 30s, got %v", cfg.ScoringTimeout())
	}
	if cfg.AuthRateLimit != 10 || cfg.AuthRateWindow() != time.Minute {
		t.Errorf("Unexpected default rate limit: %d per %v", cfg.AuthRateLimit, cfg.AuthRateWindow())
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "listen_addr: \":9090\"\ntoken_ttl_minutes: 15\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	t.Setenv("MLOPS_JWT_SECRET", "from-env")
	t.Setenv("MLOPS_TOKEN_TTL_MINUTES", "5")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ListenAddr != ":9090" {
		t.Errorf("Expected file override :9090, got %s", cfg.ListenAddr)
	}
	if cfg.JWTSecret != "from-env" {
		t.Errorf("Expected env override for jwt_secret, got %s", cfg.JWTSecret)
	}
	// Environment wins over the file.
	if cfg.TokenTTL() != 5*time.Minute {
		t.Errorf("Expected env override 5m, got %v", cfg.TokenTTL())
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DatabasePath != "data/accidents.db" {
		t.Errorf("Expected default database path, got %s", cfg.DatabasePath)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config should validate: %v", err)
	}

	cfg = Default()
	cfg.JWTSecret = ""
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for empty jwt_secret")
	}

	cfg = Default()
	cfg.TokenTTLMinutes = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for zero token TTL")
	}

	cfg = Default()
	cfg.AuthRateLimit = -1
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for negative rate limit")
	}
}
