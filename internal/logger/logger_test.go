package logger

import (
	"context"
	"log/slog"
	"testing"
)

func TestWithRunID_And_RunIDFromContext(t *testing.T) {
	ctx := context.Background()
	runID := "run-12345"

	// Initially empty
	if got := RunIDFromContext(ctx); got != "" {
		t.Errorf("RunIDFromContext() on empty ctx = %v, want empty", got)
	}

	// After setting
	ctx = WithRunID(ctx, runID)
	if got := RunIDFromContext(ctx); got != runID {
		t.Errorf("RunIDFromContext() = %v, want %v", got, runID)
	}
}

func TestWithStore_And_StoreFromContext(t *testing.T) {
	ctx := context.Background()

	if got := StoreFromContext(ctx); got != "" {
		t.Errorf("StoreFromContext() on empty ctx = %v, want empty", got)
	}

	ctx = WithStore(ctx, "miniature-market")
	if got := StoreFromContext(ctx); got != "miniature-market" {
		t.Errorf("StoreFromContext() = %v, want miniature-market", got)
	}
}

func TestFromContext_AttachesFields(t *testing.T) {
	base := New(slog.LevelInfo)
	ctx := context.Background()

	// Without run ID - should return base logger (not nil)
	l := FromContext(ctx, base)
	if l == nil {
		t.Error("FromContext() returned nil")
	}

	ctx = WithRunID(ctx, "run-67890")
	ctx = WithStore(ctx, "game-nerdz")
	l = FromContext(ctx, base)
	if l == nil {
		t.Error("FromContext() with run ID returned nil")
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNew_ReturnsLogger(t *testing.T) {
	l := New(slog.LevelDebug)
	if l == nil {
		t.Error("New() returned nil")
	}
}
