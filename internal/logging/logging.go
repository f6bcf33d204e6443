// Package logging configures structured slog output with tint.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Setup installs the default logger at the named level (debug, info, warn, error).
// Colour is disabled when production is true so log shippers see plain text.
func Setup(level string, production bool) {
	slog.SetDefault(New(os.Stderr, ParseLevel(level), production))
}

// New builds a tint-backed logger writing to w.
func New(w io.Writer, level slog.Level, production bool) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.DateTime,
		AddSource:  level == slog.LevelDebug,
		NoColor:    production,
	}))
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
