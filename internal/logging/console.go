// Package logging provides console logging and the per-project JSONL
// audit log of task mutations.
package logging

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// ConsoleOptions holds configuration for console logging.
type ConsoleOptions struct {
	Level           log.Level
	Formatter       log.Formatter
	ReportTimestamp bool
	ReportCaller    bool
	Prefix          string
}

// DefaultConsoleOptions returns default options for console logging.
func DefaultConsoleOptions() ConsoleOptions {
	return ConsoleOptions{
		Level:           log.InfoLevel,
		Formatter:       log.TextFormatter,
		ReportTimestamp: false,
		ReportCaller:    false,
		Prefix:          "tasknest",
	}
}

// NewConsole creates a charmbracelet logger writing to w (stderr when
// nil) with the given options. Human-readable output goes to stdout;
// diagnostics stay on stderr so --json output remains parseable.
func NewConsole(w io.Writer, opts ConsoleOptions) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	return log.NewWithOptions(w, log.Options{
		Level:           opts.Level,
		Formatter:       opts.Formatter,
		ReportTimestamp: opts.ReportTimestamp,
		ReportCaller:    opts.ReportCaller,
		Prefix:          opts.Prefix,
	})
}

// ParseLevel maps a config level string onto a log level, defaulting
// to info.
func ParseLevel(s string) log.Level {
	lvl, err := log.ParseLevel(s)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// ParseFormat maps a config format string onto a formatter,
// defaulting to text.
func ParseFormat(s string) log.Formatter {
	switch s {
	case "json":
		return log.JSONFormatter
	case "logfmt":
		return log.LogfmtFormatter
	default:
		return log.TextFormatter
	}
}

// FromSettings builds a console logger from the config's logging
// fields.
func FromSettings(level, format string, timestamps, caller bool) *log.Logger {
	return NewConsole(nil, ConsoleOptions{
		Level:           ParseLevel(level),
		Formatter:       ParseFormat(format),
		ReportTimestamp: timestamps,
		ReportCaller:    caller,
		Prefix:          "tasknest",
	})
}
