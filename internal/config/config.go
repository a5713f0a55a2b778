// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keyfold Contributors

// Package config loads and validates process configuration from a YAML
// file, KEYFOLD_-prefixed environment variables, and command-line flags,
// in that order of precedence (later wins).
package config

import (
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
	"golang.org/x/crypto/bcrypt"

	"github.com/keyfold/keyfold/internal/auth"
)

// Deployment modes.
const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
	EnvTest        = "test"
)

// envPrefix namespaces the environment variables, e.g.
// KEYFOLD_DATABASE_URL maps to the database-url key.
const envPrefix = "KEYFOLD_"

// Config holds the process configuration.
type Config struct {
	// Environment selects the deployment mode: production, development,
	// or test.
	Environment string `koanf:"environment"`

	// ListenAddr is the API server listen address.
	ListenAddr string `koanf:"listen-addr"`

	// MetricsAddr is the observability server address (empty disables it).
	MetricsAddr string `koanf:"metrics-addr"`

	// DatabaseURL is the PostgreSQL connection string.
	DatabaseURL string `koanf:"database-url"`

	// Pepper is the server-side secret concatenated with passwords
	// before hashing. Required in production.
	Pepper string `koanf:"pepper"`

	// HashCost overrides the bcrypt cost factor. Zero selects the
	// mode-appropriate default.
	HashCost int `koanf:"hash-cost"`

	// SessionLifetime is the session expiration window.
	SessionLifetime time.Duration `koanf:"session-lifetime"`

	// LogFormat is "json" or "text".
	LogFormat string `koanf:"log-format"`
}

// Default returns the baseline configuration that file, env, and flags
// layer over.
func Default() Config {
	return Config{
		Environment:     EnvDevelopment,
		ListenAddr:      ":8080",
		MetricsAddr:     "127.0.0.1:9100",
		SessionLifetime: auth.DefaultSessionLifetime,
		LogFormat:       "json",
	}
}

// Load reads configuration from the optional YAML file at path, the
// environment, and the given flag set. A nil flag set skips the flag
// layer.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, oops.Code("CONFIG_FILE_FAILED").
				With("path", path).
				Wrap(err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envToKey), nil); err != nil {
		return Config{}, oops.Code("CONFIG_ENV_FAILED").Wrap(err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return Config{}, oops.Code("CONFIG_FLAGS_FAILED").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, oops.Code("CONFIG_UNMARSHAL_FAILED").Wrap(err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// envToKey maps KEYFOLD_SESSION_LIFETIME to session-lifetime.
func envToKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "_", "-")
}

// Validate checks the configuration at startup so misconfiguration
// fails the process instead of weakening it at runtime.
func (c Config) Validate() error {
	switch c.Environment {
	case EnvProduction, EnvDevelopment, EnvTest:
	default:
		return oops.Code("CONFIG_INVALID").
			With("environment", c.Environment).
			Errorf("environment must be production, development, or test")
	}

	// An unset pepper in production silently downgrades every stored
	// hash, so it is a startup failure, not a default.
	if c.Environment == EnvProduction && c.Pepper == "" {
		return oops.Code("CONFIG_INVALID").
			Errorf("pepper is required in production")
	}

	if c.HashCost != 0 && (c.HashCost < bcrypt.MinCost || c.HashCost > bcrypt.MaxCost) {
		return oops.Code("CONFIG_INVALID").
			With("hash-cost", c.HashCost).
			Errorf("hash-cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}

	if c.ListenAddr == "" {
		return oops.Code("CONFIG_INVALID").Errorf("listen-addr is required")
	}

	if c.SessionLifetime <= 0 {
		return oops.Code("CONFIG_INVALID").
			With("session-lifetime", c.SessionLifetime.String()).
			Errorf("session-lifetime must be positive")
	}

	if c.LogFormat != "json" && c.LogFormat != "text" {
		return oops.Code("CONFIG_INVALID").
			With("log-format", c.LogFormat).
			Errorf("log-format must be 'json' or 'text'")
	}

	return nil
}

// EffectiveHashCost resolves the bcrypt cost: an explicit override wins,
// production defaults high, everything else defaults to the minimum so
// test suites stay fast.
func (c Config) EffectiveHashCost() int {
	if c.HashCost != 0 {
		return c.HashCost
	}
	if c.Environment == EnvProduction {
		return auth.ProductionHashCost
	}
	return auth.MinimumHashCost
}

// IsProduction reports whether the process runs in production mode.
func (c Config) IsProduction() bool {
	return c.Environment == EnvProduction
}
