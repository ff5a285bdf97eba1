package config

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds the root logger. Unknown levels fall back to info.
func NewLogger(cfg LogConfig, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	w := out
	if cfg.Format != "json" {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
