// Package observability wires structured logging for the service and CLI.
package observability

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logging profiles.
const (
	// ProfileStructured emits JSON logs for log aggregation.
	ProfileStructured = "structured"

	// ProfileConsole emits human-readable logs for interactive use.
	ProfileConsole = "console"
)

// NewLogger builds a zap logger for the given level and profile.
//
// Level accepts zap's atomic level names (debug, info, warn, error).
func NewLogger(level, profile string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var cfg zap.Config
	switch profile {
	case ProfileStructured, "":
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	case ProfileConsole:
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf("invalid logging profile %q", profile)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	return cfg.Build()
}

// CLILogger builds a console logger for command-line runs. Falls back
// to a no-op logger rather than failing the command over log setup.
func CLILogger(verbose bool) *zap.Logger {
	level := "info"
	if verbose {
		level = "debug"
	}
	log, err := NewLogger(level, ProfileConsole)
	if err != nil {
		return zap.NewNop()
	}
	return log
}
