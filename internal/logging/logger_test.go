package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "info", "json")

	logger.Info("export started", "session", "abc")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if rec["msg"] != "export started" || rec["session"] != "abc" {
		t.Errorf("unexpected record %v", rec)
	}
}

func TestNew_AutoOnBufferIsJSON(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "info", "auto").Info("hello")

	if !strings.HasPrefix(buf.String(), "{") {
		t.Errorf("expected JSON for non-terminal writer, got %q", buf.String())
	}
}

func TestNew_TextAndLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "warn", "text")

	logger.Info("dropped")
	logger.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Error("info record should be filtered at warn level")
	}
	if !strings.Contains(out, "msg=kept") {
		t.Errorf("expected text record, got %q", out)
	}
}

func TestIsTerminal_NonFile(t *testing.T) {
	if IsTerminal(&bytes.Buffer{}) {
		t.Error("a buffer is never a terminal")
	}
}
