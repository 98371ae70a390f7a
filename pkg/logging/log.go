// Package logging is the ambient logging surface for the whole engine:
// the listener loop, accept/read/close paths, consumer workers and slot
// invocation all log through here instead of the log package. Adapted
// from the teacher's pkg/logger/logger.go (same env-driven slog setup),
// rewritten for this domain's events.
package logging

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Log is the package-level logger. Init installs a concrete handler;
// until then Log is nil and the helpers below are no-ops, so packages can
// log unconditionally without requiring callers to initialize logging
// first (useful in unit tests).
var Log *slog.Logger

// Init configures the global slog logger from environment variables:
// EVENTWIRE_LOG_LEVEL (debug|info|warn|error, default info) and
// EVENTWIRE_LOG_SINK ("file:<path>" or unset for stdout).
func Init() {
	lvl := strings.ToLower(strings.TrimSpace(os.Getenv("EVENTWIRE_LOG_LEVEL")))
	var level slog.Level
	switch lvl {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	sink := os.Getenv("EVENTWIRE_LOG_SINK")
	if strings.HasPrefix(sink, "file:") {
		path := strings.TrimPrefix(sink, "file:")
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
		if err == nil {
			Log = slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
			return
		}
		fmt.Fprintf(os.Stderr, "eventwire: failed to open log sink %s: %v\n", path, err)
	}
	Log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

func Debug(msg string, args ...any) {
	if Log == nil {
		return
	}
	Log.Debug(msg, args...)
}

func Info(msg string, args ...any) {
	if Log == nil {
		return
	}
	Log.Info(msg, args...)
}

func Warn(msg string, args ...any) {
	if Log == nil {
		return
	}
	Log.Warn(msg, args...)
}

func Error(msg string, args ...any) {
	if Log == nil {
		return
	}
	Log.Error(msg, args...)
}
