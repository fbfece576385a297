// Package logging builds the application's zap logger.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a JSON production logger when env is "production", otherwise a
// human-readable development logger. level is a zap level name ("debug",
// "info", "warn", "error"); an empty level keeps the preset's default.
func New(env, level string) (*zap.Logger, error) {
	var cfg zap.Config
	if env == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}

	if level != "" {
		lvl, err := ParseLevel(level)
		if err != nil {
			return nil, err
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("logging: build logger: %w", err)
	}
	return logger, nil
}

// ParseLevel accepts zap level names plus "warning" and "trace".
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zapcore.DebugLevel, nil
	case "warning":
		return zapcore.WarnLevel, nil
	}
	lvl, err := zapcore.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return lvl, fmt.Errorf("logging: %w", err)
	}
	return lvl, nil
}
