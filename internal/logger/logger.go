// Package logger provides structured logging setup using slog.
package logger

import (
	"context"
	"log/slog"
	"os"
)

// runIDKey is the context key for scrape-run correlation IDs.
type runIDKey struct{}

// storeKey is the context key for the store slug being processed.
type storeKey struct{}

// New creates a new structured JSON logger at the given level.
func New(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}

// ParseLevel maps a config string to a slog level. Unknown values fall back to info.
func ParseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithRunID returns a new context carrying the given run ID.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFromContext extracts the run ID from the context.
func RunIDFromContext(ctx context.Context) string {
	if v := ctx.Value(runIDKey{}); v != nil {
		return v.(string)
	}
	return ""
}

// WithStore returns a new context carrying the store slug.
func WithStore(ctx context.Context, slug string) context.Context {
	return context.WithValue(ctx, storeKey{}, slug)
}

// StoreFromContext extracts the store slug from the context.
func StoreFromContext(ctx context.Context) string {
	if v := ctx.Value(storeKey{}); v != nil {
		return v.(string)
	}
	return ""
}

// FromContext returns a logger with context fields (run ID, store slug) attached.
func FromContext(ctx context.Context, base *slog.Logger) *slog.Logger {
	l := base
	if runID := RunIDFromContext(ctx); runID != "" {
		l = l.With("run_id", runID)
	}
	if slug := StoreFromContext(ctx); slug != "" {
		l = l.With("store", slug)
	}
	return l
}
