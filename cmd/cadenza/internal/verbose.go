package internal

import (
	"log/slog"
	"os"
	"sync/atomic"
)

var verboseEnabled atomic.Bool

// SetVerbose toggles verbose mode for error reporting and logging.
func SetVerbose(enabled bool) {
	verboseEnabled.Store(enabled)
}

// IsVerbose reports whether verbose mode is enabled.
func IsVerbose() bool {
	return verboseEnabled.Load()
}

// SetupLogging installs the default slog handler for the CLI. Verbose
// mode forces debug level regardless of the configured level.
func SetupLogging(level, format string) {
	lvl := slog.LevelInfo
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	if IsVerbose() {
		lvl = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
