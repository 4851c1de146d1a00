package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Log formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	// FormatAuto picks JSON when telemetry is also printed to stdout, so
	// log lines on stderr stay machine-separable from NDJSON events.
	FormatAuto = "auto"
)

// New builds a logger writing to w. Format "auto" resolves to JSON when
// stdoutSink is true and to text otherwise.
func New(w io.Writer, format string, level slog.Level, stdoutSink bool) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case FormatText:
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "", FormatAuto:
		if stdoutSink {
			return slog.New(slog.NewJSONHandler(w, opts)), nil
		}
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("logging: unknown format %q", format)
	}
}

// Init builds a logger with New and installs it as the slog default.
func Init(w io.Writer, format string, level slog.Level, stdoutSink bool) (*slog.Logger, error) {
	logger, err := New(w, format, level, stdoutSink)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return logger, nil
}

// ParseLevel converts a string ("debug", "info", "warn", "error") to slog.Level.
// Unknown strings default to LevelInfo.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
