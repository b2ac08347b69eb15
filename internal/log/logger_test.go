package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Level: "warn", Format: FormatText, Output: &buf})

	logger.Debug("hidden")
	logger.Info("hidden too")
	logger.Warn("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("output contains suppressed levels: %q", out)
	}
	if !strings.Contains(out, "visible") {
		t.Errorf("output missing warn line: %q", out)
	}
}

func TestNewJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Level: "info", Format: FormatJSON, Output: &buf})
	logger.Info("hello", "key", "value")

	if !strings.Contains(buf.String(), `"key":"value"`) {
		t.Errorf("output is not JSON: %q", buf.String())
	}
}

func TestFromEnvDebugTakesPrecedence(t *testing.T) {
	t.Setenv("FOUNDRY_DEBUG", "1")
	t.Setenv("FOUNDRY_LOG_LEVEL", "error")

	cfg := FromEnv()
	if cfg.Level != "debug" || !cfg.AddSource {
		t.Errorf("config = %+v, want debug with source", cfg)
	}
}

func TestFromEnvLevelPrecedence(t *testing.T) {
	t.Setenv("FOUNDRY_DEBUG", "")
	t.Setenv("FOUNDRY_LOG_LEVEL", "warn")
	t.Setenv("LOG_LEVEL", "debug")

	if cfg := FromEnv(); cfg.Level != "warn" {
		t.Errorf("Level = %q, want FOUNDRY_LOG_LEVEL to win", cfg.Level)
	}

	t.Setenv("FOUNDRY_LOG_LEVEL", "")
	if cfg := FromEnv(); cfg.Level != "debug" {
		t.Errorf("Level = %q, want LOG_LEVEL fallback", cfg.Level)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
