// Package logging configures the process-wide slog logger. Local runs get
// a colorized human-readable handler; everything else logs JSON.
package logging

import (
	"log/slog"
	"os"
)

// Environment names accepted by Setup.
const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

// Setup builds a logger for the given environment and installs it as the
// slog default.
func Setup(env string) *slog.Logger {
	var logger *slog.Logger

	switch env {
	case EnvLocal:
		logger = slog.New(newPrettyHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case EnvDev:
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	default:
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	slog.SetDefault(logger)
	return logger
}
