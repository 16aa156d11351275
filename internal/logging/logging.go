// Package logging builds the process logger: text to stderr by default, or
// JSON lines to a size-rotated file.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// ParseLevel maps debug, info, warn or error (any case) to a slog.Level. The
// empty string is info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level: %s", s)
	}
}

// Options selects where log records go.
type Options struct {
	Level slog.Level
	// File receives JSON records when non-nil. Otherwise Stderr gets text.
	File   io.Writer
	Stderr io.Writer
}

// New returns a logger for opts.
func New(opts Options) *slog.Logger {
	hopts := &slog.HandlerOptions{Level: opts.Level}
	if opts.File != nil {
		return slog.New(slog.NewJSONHandler(opts.File, hopts))
	}
	w := opts.Stderr
	if w == nil {
		w = io.Discard
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}
