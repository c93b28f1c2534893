// Package logging sets up the process logger
package logging

import (
	"io"
	"os"
	"time"

	"iosctl/internal/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init builds the root logger from cfg and installs it as the global one.
// Logs go to stderr so command output stays clean on stdout.
func Init(app string, cfg config.LoggingConfig) zerolog.Logger {
	return New(os.Stderr, app, cfg)
}

// New builds a logger writing to w
func New(w io.Writer, app string, cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	output := w
	if cfg.Format != "json" {
		output = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
		}
	}
	logger := zerolog.New(output).Level(level).With().Timestamp().Str("app", app).Logger()
	log.Logger = logger
	return logger
}
