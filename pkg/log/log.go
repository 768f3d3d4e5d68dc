// Package log provides slog setup helpers shared by the conveyor binaries.
package log

import (
	"log/slog"
	"os"
	"strings"
)

// Setup installs a text handler on stderr as the process-wide default logger.
// logLevel is one of debug, info, warn or error; anything else falls back to
// info.
func Setup(logLevel string) {
	level := slog.LevelInfo

	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// WithModule derives a logger from the default one tagged with the component
// name, so every line says which part of the engine wrote it.
func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}
