package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"techcalc/internal/logger"
	"techcalc/internal/model"
)

// DefaultPath is read when CONFIG_PATH is unset. A missing file is fine.
const DefaultPath = "configs/techcalc.yaml"

// Config holds all techcalc configuration: YAML file first, then
// environment overrides, then defaults.
type Config struct {
	SQLitePath      string   `yaml:"sqlite_path"`
	PriceSQLitePath string   `yaml:"price_sqlite_path"` // defaults to SQLitePath
	RedisAddr       string   `yaml:"redis_addr"`        // empty disables Redis
	RedisPassword   string   `yaml:"redis_password"`
	MetricsAddr     string   `yaml:"metrics_addr"` // empty disables the HTTP server
	Families        []string `yaml:"families"`
	Instruments     []string `yaml:"instruments"` // empty = every code in the feed
	Workers         int      `yaml:"workers"`
	LockTTLSec      int      `yaml:"lock_ttl_sec"`
	LogLevel        string   `yaml:"log_level"`
}

// Load reads the config file named by CONFIG_PATH (or DefaultPath), applies
// environment overrides and defaults, and validates the result.
func Load() (*Config, error) {
	return LoadFile(getEnv("CONFIG_PATH", DefaultPath))
}

// LoadFile is Load with an explicit path.
func LoadFile(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.SQLitePath = v
	}
	if v := os.Getenv("PRICE_SQLITE_PATH"); v != "" {
		cfg.PriceSQLitePath = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := os.Getenv("FAMILIES"); v != "" {
		cfg.Families = splitList(v)
	}
	if v := os.Getenv("INSTRUMENTS"); v != "" {
		cfg.Instruments = splitList(v)
	}
	if v := os.Getenv("WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Workers = n
		} else {
			slog.Warn("ignoring invalid WORKERS", "value", v)
		}
	}
	if v := os.Getenv("LOCK_TTL_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.LockTTLSec = n
		} else {
			slog.Warn("ignoring invalid LOCK_TTL_SEC", "value", v)
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	// Defaults
	if cfg.SQLitePath == "" {
		cfg.SQLitePath = "data/techcalc.db"
	}
	if cfg.PriceSQLitePath == "" {
		cfg.PriceSQLitePath = cfg.SQLitePath
	}
	if len(cfg.Families) == 0 {
		cfg.Families = append([]string(nil), model.Families...)
	}
	if cfg.Workers == 0 {
		cfg.Workers = 4
	}
	if cfg.LockTTLSec == 0 {
		cfg.LockTTLSec = 300
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects an empty database path, unknown families and
// non-positive limits.
func (c *Config) Validate() error {
	if c.SQLitePath == "" {
		return fmt.Errorf("config: sqlite_path is empty")
	}
	known := make(map[string]bool, len(model.Families))
	for _, f := range model.Families {
		known[f] = true
	}
	for _, f := range c.Families {
		if !known[f] {
			return fmt.Errorf("config: unknown family %q (want one of %s)", f, strings.Join(model.Families, ", "))
		}
	}
	if c.Workers < 1 {
		return fmt.Errorf("config: workers must be positive, got %d", c.Workers)
	}
	if c.LockTTLSec < 1 {
		return fmt.Errorf("config: lock_ttl_sec must be positive, got %d", c.LockTTLSec)
	}
	return nil
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	return logger.ParseLevel(c.LogLevel)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
