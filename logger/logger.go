// Package logger provides structured logging for the scraper and API.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger wraps slog with a mutable level so verbosity can be configured at
// startup.
type Logger struct {
	internal *slog.Logger
	level    *slog.LevelVar
}

// New creates a logger writing text records to stderr at the given level.
// Unrecognized levels fall back to info.
func New(level string) *Logger {
	return NewWithWriter(level, os.Stderr)
}

// NewWithWriter creates a logger writing to w. Used by tests to capture
// output.
func NewWithWriter(level string, w io.Writer) *Logger {
	lvl := new(slog.LevelVar)

	switch strings.ToLower(level) {
	case "debug":
		lvl.Set(slog.LevelDebug)
	case "info":
		lvl.Set(slog.LevelInfo)
	case "warn":
		lvl.Set(slog.LevelWarn)
	case "error":
		lvl.Set(slog.LevelError)
	default:
		lvl.Set(slog.LevelInfo)
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})

	return &Logger{
		internal: slog.New(handler),
		level:    lvl,
	}
}

// Debug logs a debug level message.
func (l *Logger) Debug(msg string, args ...any) {
	l.internal.Debug(msg, args...)
}

// Info logs an info level message.
func (l *Logger) Info(msg string, args ...any) {
	l.internal.Info(msg, args...)
}

// Warn logs a warning level message.
func (l *Logger) Warn(msg string, args ...any) {
	l.internal.Warn(msg, args...)
}

// Error logs an error level message.
func (l *Logger) Error(msg string, args ...any) {
	l.internal.Error(msg, args...)
}

// With creates a child logger carrying the given attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		internal: l.internal.With(args...),
		level:    l.level,
	}
}
