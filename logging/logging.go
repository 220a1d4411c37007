// Package logging builds the zerolog logger used across assetlens.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logger configuration
type Config struct {
	Level  string // debug, info, warn, error
	Format string // console or json
}

// ParseLevel maps a level name to a zerolog level, defaulting to info
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "off", "disabled":
		return zerolog.Disabled
	}
	return zerolog.InfoLevel
}

// New creates a structured logger writing to out
func New(cfg Config, out io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: "15:04:05",
			NoColor:    out != os.Stderr && out != os.Stdout,
		}
	}

	return zerolog.New(out).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()
}

// Open returns a logger appending to path, or to stderr when path is empty.
// The returned close function is never nil.
func Open(cfg Config, path string) (zerolog.Logger, func() error, error) {
	if path == "" {
		return New(cfg, os.Stderr), func() error { return nil }, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return zerolog.Nop(), func() error { return nil }, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return zerolog.Nop(), func() error { return nil }, fmt.Errorf("failed to open log file: %w", err)
	}
	return New(cfg, f), f.Close, nil
}
