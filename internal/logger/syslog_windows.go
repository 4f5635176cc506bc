//go:build windows

package logger

import (
	"errors"
	"io"
	"log/slog"
)

func newSyslogLogger(Config) (*slog.Logger, io.Closer, error) {
	return nil, nil, errors.New("syslog logging is not supported on windows")
}
