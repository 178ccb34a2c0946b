package logger

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestInit(t *testing.T) {
	logger := Init("test-service", slog.LevelInfo)
	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRunID_RoundTrip(t *testing.T) {
	ctx := context.Background()

	// No run id set
	if rid := RunID(ctx); rid != "" {
		t.Errorf("expected empty run id, got %q", rid)
	}

	// Set and retrieve
	ctx = WithRunID(ctx, "cci-600000-1")
	if rid := RunID(ctx); rid != "cci-600000-1" {
		t.Errorf("expected 'cci-600000-1', got %q", rid)
	}
}

func TestGenerateRunID(t *testing.T) {
	ts := time.Date(2024, 1, 15, 10, 30, 0, 123456789, time.UTC)
	rid := GenerateRunID("rsi", "600000", ts)

	if !strings.HasPrefix(rid, "rsi-600000-") {
		t.Errorf("expected run id to start with 'rsi-600000-', got %s", rid)
	}
	// Verify it contains the nano timestamp
	if !strings.Contains(rid, "123456789") {
		t.Errorf("expected run id to contain nanoseconds, got %s", rid)
	}
}

func TestLogWithRun(t *testing.T) {
	ctx := context.Background()

	// No run id
	attrs := LogWithRun(ctx)
	if attrs != nil {
		t.Errorf("expected nil attrs when no run id, got %v", attrs)
	}

	ctx = WithRunID(ctx, "abc-123")
	attrs = LogWithRun(ctx)
	if len(attrs) == 0 {
		t.Fatal("expected non-empty attrs with run id set")
	}
}
