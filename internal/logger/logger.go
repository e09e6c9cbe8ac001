// Package logger configures the charmbracelet/log loggers used across runtail.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

// TimeFormat is used for every timestamped line.
const TimeFormat = "15:04:05"

// Config selects level and destination.
type Config struct {
	Level  string
	Output io.Writer
	JSON   bool
	Prefix string

	// File redirects output away from the terminal. The TUI always sets it.
	File string
}

// ParseLevel maps a config string to a level. Unknown values fall back to info
// and report false.
func ParseLevel(level string) (log.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return log.DebugLevel, true
	case "info", "":
		return log.InfoLevel, true
	case "warn", "warning":
		return log.WarnLevel, true
	case "error":
		return log.ErrorLevel, true
	default:
		return log.InfoLevel, false
	}
}

// New builds a logger. The returned closer releases the log file and is never
// nil.
func New(cfg Config) (*log.Logger, io.Closer, error) {
	out := cfg.Output
	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out, closer = f, f
	}
	if out == nil {
		out = os.Stderr
	}

	level, ok := ParseLevel(cfg.Level)
	logger := log.NewWithOptions(out, log.Options{
		ReportTimestamp: true,
		TimeFormat:      TimeFormat,
		Level:           level,
		Prefix:          cfg.Prefix,
	})
	if cfg.JSON {
		logger.SetFormatter(log.JSONFormatter)
	}
	if !ok {
		logger.Warn("invalid log level, defaulting to info", "level", cfg.Level)
	}
	return logger, closer, nil
}

// Setup builds a logger and installs it as the package default so code that
// logs through log.Default picks it up.
func Setup(cfg Config) (*log.Logger, io.Closer, error) {
	logger, closer, err := New(cfg)
	if err != nil {
		return nil, nil, err
	}
	log.SetDefault(logger)
	return logger, closer, nil
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.New(io.Discard)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
