// Package logger provides a thin, structured logging wrapper used across the
// valuation engine. It standardises on logrus so every component emits the
// same field-based format regardless of where it runs.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// LoggingConfig controls the behaviour of a Logger built with New.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error. Defaults to info.
	Level string
	// Format is "json" or "text". Defaults to text.
	Format string
	// Output is "stdout", "stderr" or a file path. Defaults to stdout.
	Output string
	// Component tags every entry with a component field.
	Component string
}

// Logger wraps a logrus entry so call sites can chain fields without caring
// about the underlying backend.
type Logger struct {
	base  *logrus.Logger
	entry *logrus.Entry
}

// New builds a Logger from the provided configuration.
func New(cfg LoggingConfig) *Logger {
	base := logrus.New()

	level, err := logrus.ParseLevel(strings.TrimSpace(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	base.SetLevel(level)

	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "json":
		base.SetFormatter(&logrus.JSONFormatter{})
	default:
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Output)) {
	case "", "stdout":
		base.SetOutput(os.Stdout)
	case "stderr":
		base.SetOutput(os.Stderr)
	default:
		file, ferr := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if ferr != nil {
			base.SetOutput(os.Stdout)
		} else {
			base.SetOutput(file)
		}
	}

	entry := logrus.NewEntry(base)
	if cfg.Component != "" {
		entry = entry.WithField("component", cfg.Component)
	}
	return &Logger{base: base, entry: entry}
}

// NewDefault returns an info-level text logger tagged with the component name.
func NewDefault(component string) *Logger {
	return New(LoggingConfig{Component: component})
}

// SetOutput redirects all output, typically to io.Discard in tests.
func (l *Logger) SetOutput(w io.Writer) {
	l.base.SetOutput(w)
}

// WithField returns a logger with an additional structured field.
func (l *Logger) WithField(key string, value any) *Logger {
	return &Logger{base: l.base, entry: l.entry.WithField(key, value)}
}

// WithError returns a logger with the error attached as a field.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{base: l.base, entry: l.entry.WithError(err)}
}

func (l *Logger) Debug(args ...any)                 { l.entry.Debug(args...) }
func (l *Logger) Debugf(format string, args ...any) { l.entry.Debugf(format, args...) }
func (l *Logger) Info(args ...any)                  { l.entry.Info(args...) }
func (l *Logger) Infof(format string, args ...any)  { l.entry.Infof(format, args...) }
func (l *Logger) Warn(args ...any)                  { l.entry.Warn(args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.entry.Warnf(format, args...) }
func (l *Logger) Error(args ...any)                 { l.entry.Error(args...) }
func (l *Logger) Errorf(format string, args ...any) { l.entry.Errorf(format, args...) }
