package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format selects the handler wire format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

const (
	levelEnv  = "APS_LOG_LEVEL"
	formatEnv = "APS_LOG_FORMAT"
)

// New builds a slog logger writing to output. A nil output goes to stderr so
// log lines never mix with command output on stdout.
func New(output io.Writer, level slog.Level, format Format) *slog.Logger {
	if output == nil {
		output = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if format == FormatJSON {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}

// FromEnv builds a logger configured by APS_LOG_LEVEL and APS_LOG_FORMAT,
// defaulting to warn-level text output.
func FromEnv(output io.Writer) *slog.Logger {
	return New(output, parseLevel(os.Getenv(levelEnv)), parseFormat(os.Getenv(formatEnv)))
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(raw) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

func parseFormat(raw string) Format {
	if strings.EqualFold(raw, string(FormatJSON)) {
		return FormatJSON
	}
	return FormatText
}
