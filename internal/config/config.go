// Package config loads server settings from an optional YAML file with
// environment variable overrides. Environment always wins, so deployments can
// ship one config file and tweak per-instance via env.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the server process.
type Config struct {
	Server struct {
		Port           int    `yaml:"port"`
		CORSOrigin     string `yaml:"cors_origin"`
		LogLevel       string `yaml:"log_level"`
		RateLimit      int    `yaml:"rate_limit"`
		RateLimitBurst int    `yaml:"rate_limit_burst"`
	} `yaml:"server"`

	Rooms struct {
		TTLHours          int `yaml:"ttl_hours"`
		ReconcileInterval int `yaml:"reconcile_interval_seconds"`
	} `yaml:"rooms"`

	Auth struct {
		// Ed25519 public key, base64-encoded. Empty disables token
		// verification; every room is then ownerless.
		PublicKey string `yaml:"public_key"`
	} `yaml:"auth"`

	Database Database `yaml:"database"`
}

// Database holds Postgres connection settings. An empty Host selects the
// in-memory store.
type Database struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the Postgres connection URL.
func (d Database) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Database, d.SSLMode,
	)
}

// Load reads the YAML file at path (skipped when path is empty or missing)
// and then applies environment overrides on top of the defaults.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case os.IsNotExist(err):
			// Env-only deployments run without a file.
		default:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func defaults() *Config {
	cfg := &Config{}
	cfg.Server.Port = 8080
	cfg.Server.CORSOrigin = "*"
	cfg.Server.LogLevel = "info"
	cfg.Server.RateLimit = 20
	cfg.Server.RateLimitBurst = 40
	cfg.Rooms.TTLHours = 24
	cfg.Rooms.ReconcileInterval = 1
	cfg.Database = Database{
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		Database: "cueview",
		SSLMode:  "disable",
	}
	return cfg
}

func applyEnv(cfg *Config) {
	cfg.Server.Port = getEnvAsInt("PORT", cfg.Server.Port)
	cfg.Server.CORSOrigin = getEnv("CORS_ORIGIN", cfg.Server.CORSOrigin)
	cfg.Server.LogLevel = getEnv("LOG_LEVEL", cfg.Server.LogLevel)
	cfg.Server.RateLimit = getEnvAsInt("RATE_LIMIT", cfg.Server.RateLimit)
	cfg.Server.RateLimitBurst = getEnvAsInt("RATE_LIMIT_BURST", cfg.Server.RateLimitBurst)
	cfg.Rooms.TTLHours = getEnvAsInt("ROOM_TTL_HOURS", cfg.Rooms.TTLHours)
	cfg.Rooms.ReconcileInterval = getEnvAsInt("RECONCILE_INTERVAL_SECONDS", cfg.Rooms.ReconcileInterval)
	cfg.Auth.PublicKey = getEnv("AUTH_PUBLIC_KEY", cfg.Auth.PublicKey)

	cfg.Database.Host = getEnv("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnvAsInt("DB_PORT", cfg.Database.Port)
	cfg.Database.User = getEnv("DB_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.Database = getEnv("DB_NAME", cfg.Database.Database)
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", cfg.Database.SSLMode)
}

// RoomTTL returns the configured room idle lifetime.
func (c *Config) RoomTTL() time.Duration {
	return time.Duration(c.Rooms.TTLHours) * time.Hour
}

// ReconcileInterval returns the periodic rebroadcast cadence.
func (c *Config) ReconcileInterval() time.Duration {
	return time.Duration(c.Rooms.ReconcileInterval) * time.Second
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
