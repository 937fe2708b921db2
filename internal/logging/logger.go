// Package logging configures the process-wide slog logger and provides
// helpers for attaching request-scoped fields.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Init configures the global slog logger. format "json" selects the JSON
// handler for log aggregation; anything else uses the text handler.
func Init(level, format string) *slog.Logger {
	return InitTo(os.Stderr, level, format)
}

// InitTo is Init with an explicit writer. Logging goes to stderr by default so
// that stdout stays free for the MCP stdio transport and CLI output.
func InitTo(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// ParseLevel maps a level name to a slog.Level, defaulting to Info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// OrDefault returns logger, or slog.Default() when logger is nil.
func OrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// WithUser returns a logger with the owning user attached.
func WithUser(logger *slog.Logger, userID string) *slog.Logger {
	return OrDefault(logger).With("user_id", userID)
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
