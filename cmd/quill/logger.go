package main

import (
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
)

// createLogger creates a logger for CLI commands writing to stderr.
func createLogger(logLevel string) *slog.Logger {
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level: parseLogLevel(logLevel),
	}))
}

// parseLogLevel converts string log level to slog.Level
func parseLogLevel(levelStr string) slog.Level {
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
