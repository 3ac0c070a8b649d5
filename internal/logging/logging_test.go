package logging

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestNew_CreatesLogFile(t *testing.T) {
	dir := t.TempDir()

	logger, closeFn, err := New(dir, "debug", false)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer closeFn()

	logger.Info().Msg("hello")

	if _, err := filepath.Glob(filepath.Join(dir, "minify.log")); err != nil {
		t.Fatalf("glob: %v", err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"nonsense", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q): got %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestConsole_DoesNotPanic(t *testing.T) {
	logger := Console("info")
	logger.Info().Msg("console test")
}
