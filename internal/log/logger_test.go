package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestJSONFormatAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriter(&buf, "warn", "json")

	logger.Info().Msg("hidden")
	logger.Warn().Str("reason", "stale").Msg("call event ignored")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %q", buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("not json: %v", err)
	}
	if entry["level"] != "warn" || entry["reason"] != "stale" || entry["message"] != "call event ignored" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestConsoleFormatIsDefault(t *testing.T) {
	var buf bytes.Buffer
	NewWriter(&buf, "debug", "").Debug().Msg("hello")
	if !strings.Contains(buf.String(), "hello") || strings.HasPrefix(buf.String(), "{") {
		t.Fatalf("unexpected console output %q", buf.String())
	}
}
