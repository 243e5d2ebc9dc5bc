package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "info", Format: "json", Output: &buf})

	log.Info("snapshot created", "filters", 3)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if entry["msg"] != "snapshot created" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["filters"] != float64(3) {
		t.Errorf("filters = %v", entry["filters"])
	}
}

func TestNewTextFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "info", Format: "text", Output: &buf})

	log.Info("listening", "address", "127.0.0.1:4989")
	if !strings.Contains(buf.String(), "address=127.0.0.1:4989") {
		t.Errorf("text output = %q", buf.String())
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Format: "json", Output: &buf})

	log.Info("suppressed")
	if buf.Len() != 0 {
		t.Errorf("info logged at warn level: %s", buf.String())
	}
	log.Warn("emitted")
	if buf.Len() == 0 {
		t.Error("warn not logged at warn level")
	}
}

func TestSetLevelDynamic(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "info", Format: "json", Output: &buf})

	SetLevel("debug")
	defer SetLevel("info")

	if got := GetLevel(); got != "debug" {
		t.Errorf("GetLevel = %q, want debug", got)
	}
	log.Debug("now visible")
	if buf.Len() == 0 {
		t.Error("debug suppressed after SetLevel(debug)")
	}
}

func TestParseLevelFallback(t *testing.T) {
	if got := parseLevel("nonsense"); got != parseLevel("info") {
		t.Errorf("parseLevel(nonsense) = %v, want info level", got)
	}
}
