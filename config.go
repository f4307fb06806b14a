package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Config is one environment section of config.toml. Secrets (DB_URL, REDIS_PASSWORD)
// never live in the file; they come from the environment or .env.
type Config struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`

	// logging
	LogLevel      string `toml:"log_level"`
	LogFile       string `toml:"log_file"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	LogFormatJSON bool   `toml:"log_format_json"`

	// storage: memory | postgres | redis
	StoreBackend       string `toml:"store_backend"`
	RedisAddr          string `toml:"redis_addr"`
	RedisDB            int    `toml:"redis_db"`
	SnapshotTTLHours   int    `toml:"snapshot_ttl_hours"`
	SnapshotDebounceMS int    `toml:"snapshot_debounce_ms"`

	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`

	DBURL         string `toml:"-"`
	RedisPassword string `toml:"-"`
}

// Toml mirrors the top-level layout of config.toml.
type Toml struct {
	Development *Config
	Production  *Config
}

// Get returns the section for env.
func (t *Toml) Get(env string) (*Config, error) {
	var cfg *Config
	switch strings.ToLower(env) {
	case "dev", "development":
		cfg = t.Development
	case "prod", "production":
		cfg = t.Production
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
	if cfg == nil {
		return nil, fmt.Errorf("no [%s] section in config", strings.ToLower(env))
	}
	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SnapshotDebounce is the quiet period before a draft snapshot is written.
func (c *Config) SnapshotDebounce() time.Duration {
	return time.Duration(c.SnapshotDebounceMS) * time.Millisecond
}

// SnapshotTTL is how long the redis backend keeps a snapshot; zero means forever.
func (c *Config) SnapshotTTL() time.Duration {
	return time.Duration(c.SnapshotTTLHours) * time.Hour
}

// loadConfig reads .env (optional), decodes the env section of the toml file at path,
// applies defaults and environment overrides, and validates the result.
func loadConfig(path, env string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// Not fatal: production injects the environment directly.
		log.Debugf("[config] no .env loaded: %v", err)
	}

	var t Toml
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	cfg, err := t.Get(env)
	if err != nil {
		return nil, err
	}

	applyDefaults(cfg)
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 3000
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.StoreBackend == "" {
		cfg.StoreBackend = "memory"
	}
	if cfg.SnapshotDebounceMS == 0 {
		// Same quiet period the calculator page waits before saving.
		cfg.SnapshotDebounceMS = 800
	}
}

// applyEnv overlays secrets and a few deploy-time knobs from the environment.
func applyEnv(cfg *Config) error {
	cfg.DBURL = os.Getenv("DB_URL")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")

	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", port, err)
		}
		cfg.Port = p
	}
	if backend := os.Getenv("STORE_BACKEND"); backend != "" {
		cfg.StoreBackend = backend
	}
	return nil
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case "memory":
	case "postgres":
		if c.DBURL == "" {
			return fmt.Errorf("store_backend postgres requires DB_URL")
		}
	case "redis":
		if c.RedisAddr == "" {
			return fmt.Errorf("store_backend redis requires redis_addr")
		}
	default:
		return fmt.Errorf("unknown store_backend: %s", c.StoreBackend)
	}
	if c.SnapshotDebounceMS < 0 {
		return fmt.Errorf("snapshot_debounce_ms must not be negative")
	}
	return nil
}
