// Package logging builds the process logger on top of charmbracelet/log.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// Options holds configuration for the process logger.
type Options struct {
	Level           log.Level
	Formatter       log.Formatter
	ReportTimestamp bool
	Prefix          string
}

// DefaultOptions returns info-level text output without timestamps.
func DefaultOptions() Options {
	return Options{
		Level:     log.InfoLevel,
		Formatter: log.TextFormatter,
		Prefix:    "checklist",
	}
}

// New returns a logger writing to w (stderr when nil).
func New(w io.Writer, opts Options) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	return log.NewWithOptions(w, log.Options{
		Level:           opts.Level,
		Formatter:       opts.Formatter,
		ReportTimestamp: opts.ReportTimestamp,
		Prefix:          opts.Prefix,
	})
}

// NewFromConfig builds a logger from string configuration values.
func NewFromConfig(w io.Writer, level, format string, timestamps bool) *log.Logger {
	opts := DefaultOptions()
	opts.Level = ParseLevel(level)
	opts.Formatter = ParseFormatter(format)
	opts.ReportTimestamp = timestamps
	return New(w, opts)
}

// ParseLevel maps a level name to a log.Level; unknown names yield info.
func ParseLevel(level string) log.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// ParseFormatter maps a formatter name to a log.Formatter; unknown names yield text.
func ParseFormatter(format string) log.Formatter {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		return log.JSONFormatter
	case "logfmt":
		return log.LogfmtFormatter
	default:
		return log.TextFormatter
	}
}

// ValidLevel reports whether level is a recognised level name.
func ValidLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}

// ValidFormat reports whether format is a recognised formatter name.
func ValidFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text", "json", "logfmt":
		return true
	}
	return false
}
