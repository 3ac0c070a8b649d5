// Package logging builds the zerolog logger the daemon and CLI share, so
// the CLI's one-shot commands get the same console formatting the daemon
// uses without standing up a log file.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// New builds a logger that always writes JSON lines to dataDir/minify.log,
// and additionally writes human-readable console output to stdout when
// foreground is true. level is parsed case-insensitively; an unrecognized
// value falls back to info.
func New(dataDir, level string, foreground bool) (zerolog.Logger, func() error, error) {
	zerolog.SetGlobalLevel(ParseLevel(level))

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return zerolog.Logger{}, nil, err
	}

	logPath := filepath.Join(dataDir, "minify.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return zerolog.Logger{}, nil, err
	}

	writers := []io.Writer{logFile}
	if foreground {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
		})
	}

	multi := zerolog.MultiLevelWriter(writers...)
	logger := zerolog.New(multi).With().Timestamp().Str("service", "minify").Logger()

	return logger, logFile.Close, nil
}

// Console builds a logger that writes only human-readable console output,
// for one-shot CLI commands that have no data directory to log into.
func Console(level string) zerolog.Logger {
	zerolog.SetGlobalLevel(ParseLevel(level))
	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	return zerolog.New(w).With().Timestamp().Logger()
}

// ParseLevel converts a string log level to a zerolog.Level, defaulting
// to info for unrecognized input.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}
