// Package logger builds the zerolog loggers used across cfpattern and
// carries them through contexts.
package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/seenimoa/cfpattern/internal/config"
)

// ContextKey is the type for context keys used by the logger
type ContextKey string

const (
	// LoggerKey is the context key for the logger instance
	LoggerKey ContextKey = "logger"
)

// New creates a logger from the logging config, writing to stderr.
func New(cfg config.LoggingConfig) (zerolog.Logger, error) {
	return NewWithWriter(os.Stderr, cfg)
}

// NewWithWriter creates a logger writing to w. Format "text" produces
// human-readable console output; anything else is JSON.
func NewWithWriter(w io.Writer, cfg config.LoggingConfig) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		var err error
		level, err = zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return zerolog.Nop(), err
		}
	}

	out := w
	if cfg.Format == "text" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger(), nil
}

// WithContext adds the logger to the context
func WithContext(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext retrieves the logger from the context, or a disabled logger
// when none was stored.
func FromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(LoggerKey).(zerolog.Logger); ok {
		return logger
	}
	return zerolog.Nop()
}
