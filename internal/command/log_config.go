package command

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/joeycumines/thief-autosplitter/internal/config"
	"github.com/joeycumines/thief-autosplitter/internal/logging"
)

// logConfig holds the resolved logging configuration of a command.
type logConfig struct {
	level   slog.Level
	logFile io.WriteCloser // nil if no file logging
}

// resolveLogConfig resolves log configuration from flags and config defaults.
// Flag values take precedence; config values are used when flags have their
// zero/default value. The caller must Close() the returned logConfig.logFile
// when done (if non-nil).
func resolveLogConfig(flagPath, flagLevel string, cfg *config.Config) (logConfig, error) {
	schema := config.DefaultSchema()
	if cfg == nil {
		cfg = config.NewConfig()
	}
	var lc logConfig

	levelStr := flagLevel
	if levelStr == "" || levelStr == "info" {
		if v := schema.Resolve(cfg, "log.level"); v != "" {
			levelStr = v
		}
	}
	// verbose raises the default level only
	if levelStr == "info" {
		if v, err := schema.ResolveBool(cfg, "verbose"); err == nil && v {
			levelStr = "debug"
		}
	}
	level, err := logging.ParseLevel(levelStr)
	if err != nil {
		return lc, err
	}
	lc.level = level

	logPath := flagPath
	if logPath == "" {
		logPath = schema.Resolve(cfg, "log.file")
	}
	if logPath == "" {
		return lc, nil
	}

	maxSizeMB, err := schema.ResolveInt(cfg, "log.max-size-mb")
	if err != nil || maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	// Zero maxFiles is valid (no backups, just truncate on rotate).
	maxFiles, err := schema.ResolveInt(cfg, "log.max-files")
	if err != nil || maxFiles < 0 {
		maxFiles = 5
	}

	w, err := logging.NewRotatingFileWriter(logPath, maxSizeMB, maxFiles)
	if err != nil {
		return lc, fmt.Errorf("failed to open log file %s: %w", logPath, err)
	}
	lc.logFile = w
	return lc, nil
}

// logger builds the slog.Logger described by lc. Without a log file, records
// go to stderr as text.
func (lc logConfig) logger(stderr io.Writer) *slog.Logger {
	opts := logging.Options{Level: lc.level, Stderr: stderr}
	if lc.logFile != nil {
		opts.File = lc.logFile
	}
	return logging.New(opts)
}
