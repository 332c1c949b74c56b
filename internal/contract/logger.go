package contract

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Log rotation defaults for --log-path.
const (
	logMaxSizeMB  = 10
	logMaxBackups = 3
	logMaxAgeDays = 14
)

// ParseLogLevel maps a level name to a slog level, defaulting to info.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the per-invocation logger. Without a log path it writes text
// to stderr; with one it writes JSON to a rotating file. The returned closer must
// be closed when the run ends.
func NewLogger(level string, logPath string) (*slog.Logger, io.Closer) {
	opts := &slog.HandlerOptions{Level: ParseLogLevel(level)}
	if strings.TrimSpace(logPath) == "" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), io.NopCloser(nil)
	}

	logWriter := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    logMaxSizeMB,
		MaxBackups: logMaxBackups,
		MaxAge:     logMaxAgeDays,
	}
	return slog.New(slog.NewJSONHandler(logWriter, opts)), logWriter
}

// NewDiscardLogger returns a logger that drops everything. Used by tests and the MCP server.
func NewDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
