// Package config loads runtime settings from an optional YAML file and the
// environment. Environment variables win over the file, and the file wins
// over the built-in defaults.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Redis     RedisConfig     `yaml:"redis"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type ServerConfig struct {
	Port            int    `yaml:"port" env:"PORT"`
	ShutdownTimeout string `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

type DatabaseConfig struct {
	Path string `yaml:"path" env:"DB_PATH"`
}

type AuthConfig struct {
	TokenLength        int    `yaml:"token_length" env:"USER_TOKEN_LENGTH"`
	TokenLifetimeHours int    `yaml:"token_lifetime_hours" env:"USER_TOKEN_LIFETIME_HOURS"`
	BcryptCost         int    `yaml:"bcrypt_cost" env:"BCRYPT_COST"`
	HashWorkers        int    `yaml:"hash_workers" env:"HASH_WORKERS"`
	SweepInterval      string `yaml:"sweep_interval" env:"SESSION_SWEEP_INTERVAL"`
}

// RedisConfig is optional. An empty Addr disables the rate limiter.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB"`
}

type RateLimitConfig struct {
	Limit  int    `yaml:"limit" env:"RATE_LIMIT"`
	Window string `yaml:"window" env:"RATE_WINDOW"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

// TelemetryConfig is optional. An empty Endpoint disables tracing.
type TelemetryConfig struct {
	Endpoint    string `yaml:"endpoint" env:"OTEL_ENDPOINT"`
	ServiceName string `yaml:"service_name" env:"OTEL_SERVICE_NAME"`
}

// Default returns the settings used when nothing else is configured.
func Default() Config {
	return Config{
		Server:   ServerConfig{Port: 8080, ShutdownTimeout: "30s"},
		Database: DatabaseConfig{Path: "data/codewizard.db"},
		Auth: AuthConfig{
			TokenLength:        32,
			TokenLifetimeHours: 24,
			BcryptCost:         12,
			SweepInterval:      "1h",
		},
		RateLimit: RateLimitConfig{Limit: 10, Window: "1m"},
		Log:       LogConfig{Level: "info", Format: "text"},
		Telemetry: TelemetryConfig{ServiceName: "codewizard"},
	}
}

// Load builds the configuration. path may be empty, in which case only
// defaults and the environment are used.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	// Unset variables leave the current value in place.
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("config: parsing environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Server.Port))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database path is required"))
	}
	if c.Auth.TokenLength < 32 {
		errs = append(errs, fmt.Errorf("token length %d is below 32 bytes", c.Auth.TokenLength))
	}
	if c.Auth.TokenLifetimeHours <= 0 {
		errs = append(errs, fmt.Errorf("token lifetime %dh must be positive", c.Auth.TokenLifetimeHours))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if f := strings.ToLower(c.Log.Format); f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("log format %q must be text or json", c.Log.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

func (c Config) TokenLifetime() time.Duration {
	return time.Duration(c.Auth.TokenLifetimeHours) * time.Hour
}

func (c Config) SweepInterval() time.Duration {
	return Duration(c.Auth.SweepInterval, time.Hour)
}

func (c Config) RateWindow() time.Duration {
	return Duration(c.RateLimit.Window, time.Minute)
}

func (c Config) ShutdownTimeout() time.Duration {
	return Duration(c.Server.ShutdownTimeout, 30*time.Second)
}

// SlogLevel maps Log.Level onto slog. Validate has already rejected
// unknown names, so the fallback is Info.
func (c Config) SlogLevel() slog.Level {
	lvl, err := parseLevel(c.Log.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Duration parses a duration string or returns the fallback if empty or
// malformed.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	return fallback
}

func parseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level %q: %w", s, err)
	}
	return lvl, nil
}
