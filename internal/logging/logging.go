// Package logging provides structured logging for the jarvys agent.
//
// The logger wraps Zap with a small config surface (level, format, constant
// fields). Subsystems derive child loggers via Named so every log line carries
// its origin.
package logging

import (
	"errors"
	"fmt"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls logger construction.
type Config struct {
	// Level is the minimum enabled level: "debug", "info", "warn", "error".
	Level string `koanf:"level"`

	// Format selects the encoder: "json" (default) or "console".
	Format string `koanf:"format"`

	// Fields are constant key/value pairs attached to every entry.
	Fields map[string]string `koanf:"fields"`
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("invalid log format: %q", c.Format)
	}
	if c.Level != "" {
		var l zapcore.Level
		if err := l.UnmarshalText([]byte(c.Level)); err != nil {
			return fmt.Errorf("invalid log level: %q", c.Level)
		}
	}
	return nil
}

// NewLogger creates a zap logger from config.
func NewLogger(cfg Config) (*zap.Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, fmt.Errorf("invalid log level: %w", err)
		}
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.Encoding = "json"
	if cfg.Format == "console" {
		zapCfg.Encoding = "console"
	}
	zapCfg.EncoderConfig.TimeKey = "ts"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	if len(cfg.Fields) > 0 {
		fields := make([]zap.Field, 0, len(cfg.Fields))
		for k, v := range cfg.Fields {
			fields = append(fields, zap.String(k, v))
		}
		logger = logger.With(fields...)
	}

	return logger, nil
}

// Sync flushes buffered entries, swallowing the harmless stdout/stderr
// sync errors Linux reports.
func Sync(logger *zap.Logger) error {
	err := logger.Sync()
	if err != nil && isStdoutSyncError(err) {
		return nil
	}
	return err
}

// isStdoutSyncError reports whether err is the EINVAL/ENOTTY that syncing
// stdout/stderr returns on Linux.
func isStdoutSyncError(err error) bool {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.EINVAL || errno == syscall.ENOTTY
	}
	return false
}
