//go:build !windows

package logger

import (
	"fmt"
	"io"
	"log/slog"
	"log/syslog"
	"strings"
)

func newSyslogLogger(cfg Config) (*slog.Logger, io.Closer, error) {
	prio, err := facilityPriority(cfg.SyslogFacility)
	if err != nil {
		return nil, nil, err
	}
	tag := cfg.SyslogTag
	if tag == "" {
		tag = "caupdater"
	}
	network, addr := syslogNetwork(cfg.SyslogAddress)
	w, err := syslog.Dial(network, addr, prio, tag)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to connect to syslog: %w", err)
	}
	// Syslog supplies its own timestamps and identity.
	h := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: cfg.Level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	})
	return slog.New(h), w, nil
}

// syslogNetwork maps an address to the dial arguments syslog expects:
// empty means the local system logger, host:port means UDP, anything
// else is treated as a local socket path.
func syslogNetwork(address string) (network, addr string) {
	switch {
	case address == "":
		return "", ""
	case strings.Contains(address, ":"):
		return "udp", address
	default:
		return "unixgram", address
	}
}

func facilityPriority(facility string) (syslog.Priority, error) {
	if facility == "" {
		facility = "user"
	}
	m := map[string]syslog.Priority{
		"kern":   syslog.LOG_KERN,
		"user":   syslog.LOG_USER,
		"mail":   syslog.LOG_MAIL,
		"daemon": syslog.LOG_DAEMON,
		"auth":   syslog.LOG_AUTH,
		"syslog": syslog.LOG_SYSLOG,
		"cron":   syslog.LOG_CRON,
		"local0": syslog.LOG_LOCAL0,
		"local1": syslog.LOG_LOCAL1,
		"local2": syslog.LOG_LOCAL2,
		"local3": syslog.LOG_LOCAL3,
		"local4": syslog.LOG_LOCAL4,
		"local5": syslog.LOG_LOCAL5,
		"local6": syslog.LOG_LOCAL6,
		"local7": syslog.LOG_LOCAL7,
	}
	p, ok := m[strings.ToLower(facility)]
	if !ok {
		return 0, fmt.Errorf("unknown syslog facility %q", facility)
	}
	return p | syslog.LOG_INFO, nil
}
