// Package logger builds the process-wide slog.Logger from the logging
// flags: colored console output by default, a rotating logfile with
// lumberjack, or syslog for hosts that collect logs centrally.
package logger

import (
	"io"
	"log/slog"
	"os"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Rotation defaults, lumberjack semantics.
const (
	DefaultMaxSizeMB  = 10
	DefaultMaxBackups = 3
	DefaultMaxAgeDays = 7
)

// Config describes the logging destination and verbosity.
type Config struct {
	Level slog.Level

	// FilePath routes logs to a rotating file instead of the console.
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool

	// Syslog routes logs to syslog instead of the console. FilePath
	// wins when both are set.
	Syslog         bool
	SyslogFacility string // e.g. "user", "daemon", "cron"
	SyslogTag      string
	SyslogAddress  string // host:port or socket path; empty means the local logger
}

// New builds the logger. The returned closer flushes and closes the
// underlying destination; it is a no-op for console logging.
func New(cfg Config) (*slog.Logger, io.Closer, error) {
	opts := &slog.HandlerOptions{Level: cfg.Level}

	switch {
	case cfg.FilePath != "":
		w := &lj.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    valOr(cfg.MaxSizeMB, DefaultMaxSizeMB),
			MaxBackups: valOr(cfg.MaxBackups, DefaultMaxBackups),
			MaxAge:     valOr(cfg.MaxAgeDays, DefaultMaxAgeDays),
			Compress:   cfg.Compress,
		}
		return slog.New(slog.NewTextHandler(w, opts)), w, nil
	case cfg.Syslog:
		return newSyslogLogger(cfg)
	default:
		return slog.New(NewColorTextHandler(os.Stderr, opts)), nopCloser{}, nil
	}
}

// ParseLevel maps the verbosity flags to a slog level.
func ParseLevel(quiet, verbose, debug bool) slog.Level {
	switch {
	case debug:
		return slog.LevelDebug
	case verbose:
		return slog.LevelInfo
	case quiet:
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

func valOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
