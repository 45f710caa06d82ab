// Package log provides the logging infrastructure for the petdex backend.
//
// Loggers are plain *slog.Logger values handed to components through their
// constructors; components add context via logger.With(). No package-level
// global is used outside of main.
//
// Usage:
//
//	logger := log.New(log.Config{Level: slog.LevelDebug})
//	store := storage.New(pool, logger.With("component", "storage"))
//
//	// In tests, use the Nop logger or capture to a buffer:
//	testLogger := log.NewNop()
//	// or
//	var buf bytes.Buffer
//	testLogger := log.NewWithWriter(&buf, log.Config{})
package log

import (
	"io"
	"log/slog"
	"os"
)

// Logger is a type alias for *slog.Logger so components depend on the
// standard type and keep access to With() without a custom interface.
type Logger = *slog.Logger

// Config defines logger configuration options.
type Config struct {
	// Level sets the minimum log level. Default: slog.LevelInfo
	Level slog.Level

	// JSON enables JSON format output. Default: false (text format)
	JSON bool

	// AddSource adds source file information to log entries. Default: false
	AddSource bool
}

// New creates a logger with the given configuration, writing to os.Stderr.
func New(cfg Config) Logger {
	return NewWithWriter(os.Stderr, cfg)
}

// NewWithWriter creates a logger that writes to the specified writer.
// Useful for tests or custom output destinations.
func NewWithWriter(w io.Writer, cfg Config) Logger {
	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// NewNop creates a logger that discards all output.
//
// This should only be used in tests; production code always goes through
// New or NewWithWriter so that logs are never silently dropped.
func NewNop() Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
