package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewHandler_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, "info", "json"))

	logger.Debug("hidden")
	logger.Info("dataset loaded", "rows", 3)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 log line, got %d: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("expected JSON output: %v", err)
	}
	if entry["msg"] != "dataset loaded" || entry["rows"] != float64(3) {
		t.Errorf("unexpected entry %v", entry)
	}
}

func TestNewHandler_TextAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, "debug", "text"))

	logger.Debug("fetching", "url", "http://example.com")

	out := buf.String()
	if !strings.Contains(out, "level=DEBUG") || !strings.Contains(out, "msg=fetching") {
		t.Errorf("unexpected text output %q", out)
	}
}
