package logger

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"chat-widget/internal/infra/config"
)

func TestNewWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, config.LoggerConfig{Level: "info", Format: "json"})

	log.Info("submission resolved", "pending_id", "pending-1")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid JSON: %v, output: %s", err, buf.String())
	}
	if entry["msg"] != "submission resolved" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["pending_id"] != "pending-1" {
		t.Errorf("pending_id = %v", entry["pending_id"])
	}
}

func TestNewWriterLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, config.LoggerConfig{Level: "warn", Format: "text"})

	log.Info("hidden")
	log.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line leaked at warn level: %s", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("warn line missing: %s", out)
	}
}

func TestForWidgetAddsAttributes(t *testing.T) {
	var buf bytes.Buffer
	base := NewWriter(&buf, config.LoggerConfig{Level: "debug", Format: "text"})

	ForWidget(base, "w-123", "controller").Debug("hello")

	out := buf.String()
	if !strings.Contains(out, "widget_id=w-123") || !strings.Contains(out, "component=controller") {
		t.Errorf("missing scoped attributes: %s", out)
	}
}

func TestForWidgetNilLogger(t *testing.T) {
	log := ForWidget(nil, "w", "probe")
	if log == nil {
		t.Fatal("ForWidget(nil) returned nil")
	}
	log.Info("discarded")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestOpenOutputTargets(t *testing.T) {
	tests := []struct {
		output string
		want   io.Writer
	}{
		{"stdout", os.Stdout},
		{"stderr", os.Stderr},
		{"", os.Stderr},
		{"discard", io.Discard},
	}
	for _, tt := range tests {
		w, closer, err := openOutput(tt.output)
		if err != nil {
			t.Fatalf("openOutput(%q): %v", tt.output, err)
		}
		if w != tt.want {
			t.Errorf("openOutput(%q) returned unexpected writer %T", tt.output, w)
		}
		_ = closer()
	}
}

func TestNewFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "widget.log")
	log, closer, err := New(config.LoggerConfig{Level: "info", Format: "text", Output: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.Info("written to file")
	if err := closer(); err != nil {
		t.Fatalf("closer: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "written to file") {
		t.Errorf("file content = %q", data)
	}
}

func TestNewBadFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "widget.log")
	if _, _, err := New(config.LoggerConfig{Output: path}); err == nil {
		t.Fatal("expected error for unwritable path")
	}
}
