package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New creates the process-wide logger. format "json" emits one JSON
// object per line for aggregated deployments; anything else means
// human-readable text.
func New(level, format string) *slog.Logger {
	return slog.New(handlerFor(os.Stdout, level, format))
}

// ForComponent tags a child logger with the pipeline stage name, so
// interleaved scrape, scoring and scheduler lines stay attributable. A
// nil parent yields a logger that discards everything.
func ForComponent(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return logger.With(slog.String("component", component))
}

func handlerFor(w io.Writer, level, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: levelFromString(level)}
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

func levelFromString(value string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "error":
		return slog.LevelError
	case "warn", "warning":
		return slog.LevelWarn
	case "info":
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
