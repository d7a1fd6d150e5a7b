package logger

import (
	"errors"
	"log/slog"
	"testing"
)

func TestScope(t *testing.T) {
	attr := Scope("feeds.poller")
	if attr.Key != "scope" {
		t.Errorf("Scope() key = %q, want %q", attr.Key, "scope")
	}
	if attr.Value.String() != "feeds.poller" {
		t.Errorf("Scope() value = %q, want %q", attr.Value.String(), "feeds.poller")
	}
}

func TestError(t *testing.T) {
	err := errors.New("connection refused")
	attr := Error(err)
	if attr.Key != "error" {
		t.Errorf("Error() key = %q, want %q", attr.Key, "error")
	}
	if attr.Value.Any() != err {
		t.Errorf("Error() value = %v, want %v", attr.Value.Any(), err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLoggerLevels(t *testing.T) {
	t.Setenv("GO_ENV", "")

	t.Setenv("LOG_LEVEL", "debug")
	if log := NewLogger(); !log.Enabled(nil, slog.LevelDebug) {
		t.Error("debug level should be enabled when LOG_LEVEL=debug")
	}

	t.Setenv("LOG_LEVEL", "error")
	log := NewLogger()
	if !log.Enabled(nil, slog.LevelError) {
		t.Error("error level should be enabled when LOG_LEVEL=error")
	}
	if log.Enabled(nil, slog.LevelWarn) {
		t.Error("warn level should not be enabled when LOG_LEVEL=error")
	}
}
