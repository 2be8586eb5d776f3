package searchutils

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with facet-specific helpers.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.DiscardHandler)
}

// WithFacet adds a facet field to the logger.
func (l *Logger) WithFacet(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("facet", name),
	}
}

// LogFacetCounts logs the outcome of counting one request.
func (l *Logger) LogFacetCounts(ctx context.Context, query string, classes, failures int, elapsed time.Duration) {
	if failures > 0 {
		l.WarnContext(ctx, "facet counts incomplete",
			"query", query,
			"classes", classes,
			"failures", failures,
			"elapsed", elapsed,
		)
	} else {
		l.DebugContext(ctx, "facet counts attached",
			"query", query,
			"classes", classes,
			"elapsed", elapsed,
		)
	}
}

// LogClassProduced logs the production of explicit classes.
func (l *Logger) LogClassProduced(ctx context.Context, classes int, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "facet class production failed",
			"elapsed", elapsed,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "facet class produced",
			"classes", classes,
			"elapsed", elapsed,
		)
	}
}

// LogDiscovery logs a class discovery.
func (l *Logger) LogDiscovery(ctx context.Context, classes int, elapsed time.Duration, err error) {
	if err != nil {
		l.WarnContext(ctx, "facet discovery incomplete",
			"classes", classes,
			"elapsed", elapsed,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "facet discovery completed",
			"classes", classes,
			"elapsed", elapsed,
		)
	}
}

// LogSpill logs a write to or a restore from the spill tier.
func (l *Logger) LogSpill(ctx context.Context, restore bool, err error) {
	op := "save"
	if restore {
		op = "restore"
	}
	if err != nil {
		l.WarnContext(ctx, "facet spill failed",
			"op", op,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "facet spill completed",
			"op", op,
		)
	}
}

// LogCacheCleared logs the reset done by Initialize.
func (l *Logger) LogCacheCleared(ctx context.Context, generation uint64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "facet initialization failed",
			"generation", generation,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "facet caches cleared",
			"generation", generation,
		)
	}
}
