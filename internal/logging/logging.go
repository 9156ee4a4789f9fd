// SPDX-License-Identifier: MPL-2.0

// Package logging builds the process logger: a log/slog front end backed by
// a charmbracelet/log handler so build output stays readable on a terminal.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Options configure New.
type Options struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string
	// Prefix is printed before every message, e.g. "nbuild".
	Prefix string
	// Timestamps adds a wall-clock time to each line.
	Timestamps bool
	// JSON switches to machine-readable output.
	JSON bool
}

// ParseLevel maps a configured level name to a charmbracelet/log level.
func ParseLevel(name string) (log.Level, error) {
	if name == "" {
		return log.InfoLevel, nil
	}
	lvl, err := log.ParseLevel(strings.ToLower(name))
	if err != nil {
		return log.InfoLevel, fmt.Errorf("unknown log level %q: %w", name, err)
	}
	return lvl, nil
}

// New returns a slog.Logger writing to w.
func New(w io.Writer, opts Options) (*slog.Logger, error) {
	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	handler := log.NewWithOptions(w, log.Options{
		Level:           lvl,
		Prefix:          opts.Prefix,
		ReportTimestamp: opts.Timestamps,
		TimeFormat:      time.TimeOnly,
	})
	if opts.JSON {
		handler.SetFormatter(log.JSONFormatter)
	}
	return slog.New(handler), nil
}

// Discard returns a logger that drops everything. Used by tests and by
// --quiet runs.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
