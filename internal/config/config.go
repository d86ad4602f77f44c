package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all runtime configuration for the API server.
type Config struct {
	ListenAddr   string `koanf:"listen_addr"`
	DatabasePath string `koanf:"database_path"`
	RedisAddr    string `koanf:"redis_addr"`

	JWTSecret       string `koanf:"jwt_secret"`
	TokenTTLMinutes int    `koanf:"token_ttl_minutes"`

	ScoringURL            string `koanf:"scoring_url"`
	ScoringTimeoutSeconds int    `koanf:"scoring_timeout_seconds"`

	// Per-client ceiling for the authentication endpoints.
	AuthRateLimit         int `koanf:"auth_rate_limit"`
	AuthRateWindowSeconds int `koanf:"auth_rate_window_seconds"`
}

func Default() *Config {
	return &Config{
		ListenAddr:            ":8080",
		DatabasePath:          "data/accidents.db",
		RedisAddr:             "localhost:6379",
		JWTSecret:             "change-me",
		TokenTTLMinutes:       30,
		ScoringURL:            "http://localhost:8001",
		ScoringTimeoutSeconds: 30,
		AuthRateLimit:         10,
		AuthRateWindowSeconds: 60,
	}
}

// Load reads configuration from the given YAML file (if it exists), then
// overlays environment variable overrides (MLOPS_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("accessing config %s: %w", path, err)
		}
	}

	// MLOPS_JWT_SECRET -> jwt_secret, etc.
	if err := k.Load(env.Provider("MLOPS_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "MLOPS_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration contains usable values.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr is required")
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("database_path is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required")
	}
	if c.JWTSecret == "change-me" {
		fmt.Fprintln(os.Stderr, "WARNING: using default JWT secret, set MLOPS_JWT_SECRET in production")
	}
	if c.TokenTTLMinutes <= 0 {
		return fmt.Errorf("token_ttl_minutes must be positive")
	}
	if c.ScoringURL == "" {
		return fmt.Errorf("scoring_url is required")
	}
	if c.ScoringTimeoutSeconds <= 0 {
		return fmt.Errorf("scoring_timeout_seconds must be positive")
	}
	if c.AuthRateLimit <= 0 {
		return fmt.Errorf("auth_rate_limit must be positive")
	}
	if c.AuthRateWindowSeconds <= 0 {
		return fmt.Errorf("auth_rate_window_seconds must be positive")
	}
	return nil
}

func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLMinutes) * time.Minute
}

func (c *Config) ScoringTimeout() time.Duration {
	return time.Duration(c.ScoringTimeoutSeconds) * time.Second
}

func (c *Config) AuthRateWindow() time.Duration {
	return time.Duration(c.AuthRateWindowSeconds) * time.Second
}
