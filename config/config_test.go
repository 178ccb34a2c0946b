package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{"SQLITE_PATH", "PRICE_SQLITE_PATH", "REDIS_ADDR", "REDIS_PASSWORD", "METRICS_ADDR", "FAMILIES", "INSTRUMENTS", "WORKERS", "LOCK_TTL_SEC", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
}

func TestLoadFile_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.SQLitePath != "data/techcalc.db" || cfg.PriceSQLitePath != cfg.SQLitePath {
		t.Errorf("paths = %q, %q", cfg.SQLitePath, cfg.PriceSQLitePath)
	}
	if strings.Join(cfg.Families, ",") != "cci,mtm,rsi" {
		t.Errorf("families = %v", cfg.Families)
	}
	if cfg.Workers != 4 || cfg.LockTTLSec != 300 || cfg.RedisAddr != "" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadFile_YAMLThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "techcalc.yaml")
	yml := `
sqlite_path: /var/lib/techcalc/ind.db
price_sqlite_path: /var/lib/techcalc/eod.db
families: [rsi]
instruments: ["600000", "000001"]
workers: 8
log_level: debug
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("WORKERS", "2")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.PriceSQLitePath != "/var/lib/techcalc/eod.db" || len(cfg.Instruments) != 2 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Workers != 2 {
		t.Errorf("WORKERS override ignored: %d", cfg.Workers)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Errorf("REDIS_ADDR = %q", cfg.RedisAddr)
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("level = %v", cfg.SlogLevel())
	}
}

func TestLoadFile_RejectsUnknownFamily(t *testing.T) {
	clearEnv(t)
	t.Setenv("FAMILIES", "cci, macd")
	if _, err := LoadFile(filepath.Join(t.TempDir(), "none.yaml")); err == nil {
		t.Fatal("expected error for unknown family")
	}
}

func TestLoadFile_BadYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("workers: [oops"), 0o644)
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected parse error")
	}
}
