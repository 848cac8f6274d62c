package logger

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitJSONLevelFiltering(t *testing.T) {
	if err := Init(Config{Level: "warn", Format: "json"}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	var buf bytes.Buffer
	SetOutput(&buf)

	Info("dropped %d", 1)
	Warn("kept %s", "warning")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("expected JSON output: %v", err)
	}
	if entry["msg"] != "kept warning" {
		t.Errorf("unexpected msg: %v", entry["msg"])
	}
	if entry["level"] != "warning" {
		t.Errorf("unexpected level: %v", entry["level"])
	}
}

func TestInitUnknownLevelFallsBackToInfo(t *testing.T) {
	if err := Init(Config{Level: "loud", Format: "text"}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	var buf bytes.Buffer
	SetOutput(&buf)

	Debug("hidden")
	Info("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug line should be filtered at info level")
	}
	if !strings.Contains(out, "visible") {
		t.Error("info line missing")
	}
}

func TestInitCreatesLogDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tradestream.log")
	if err := Init(Config{Level: "info", Format: "json", OutputFile: path, MaxSizeMB: 1}); err != nil {
		t.Fatalf("Init with output file: %v", err)
	}
}
