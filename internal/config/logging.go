package config

import (
	"io"
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

// ParseLevel maps a LOG_LEVEL value to a slog level. Unknown values log at
// info.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger builds the process logger for the named binary. Records go to
// stderr as text and, when LogFile is set, are appended to it as JSON.
// The returned func closes the log file.
func (c Config) Logger(service string) (*slog.Logger, func() error) {
	noop := func() error { return nil }
	if c.LogFile == "" {
		return NewLogger(os.Stderr, nil, c.LogLevel).With("service", service), noop
	}

	file, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logger := NewLogger(os.Stderr, nil, c.LogLevel).With("service", service)
		logger.Error("open log file, logging to stderr only", "file", c.LogFile, "error", err)
		return logger, noop
	}
	return NewLogger(os.Stderr, file, c.LogLevel).With("service", service), file.Close
}

// NewLogger writes text records to stderr and, when file is non-nil, JSON
// records to file.
func NewLogger(stderr, file io.Writer, level slog.Leveler) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	text := slog.NewTextHandler(stderr, opts)
	if file == nil {
		return slog.New(text)
	}
	return slog.New(slogmulti.Fanout(text, slog.NewJSONHandler(file, opts)))
}
