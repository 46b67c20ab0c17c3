package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"voicemorph/pkg/config"
)

func TestLoggerJSONEntryShape(t *testing.T) {
	unsetLoggingEnv(t)

	var out bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{Format: "json", Level: "info"}, &out, nil)
	if err != nil {
		t.Fatalf("newWithWriter error: %v", err)
	}

	log.With("component", "dispatch").Info("Menu built", "entries", int64(6), "ok", true)

	line := strings.TrimSpace(out.String())
	if line == "" {
		t.Fatal("expected log output")
	}

	var entry LogEntry
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("unmarshal log entry: %v", err)
	}

	if entry.Level != "info" {
		t.Fatalf("level = %q, want %q", entry.Level, "info")
	}
	if entry.Message != "Menu built" {
		t.Fatalf("message = %q, want %q", entry.Message, "Menu built")
	}
	if entry.Component != "dispatch" {
		t.Fatalf("component = %q, want %q", entry.Component, "dispatch")
	}
	if entry.Timestamp == "" {
		t.Fatal("expected timestamp")
	}
	if got := entry.Fields["ok"]; got != true {
		t.Fatalf("fields.ok = %v, want true", got)
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	unsetLoggingEnv(t)

	var out bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{Format: "json", Level: "error"}, &out, nil)
	if err != nil {
		t.Fatalf("newWithWriter error: %v", err)
	}

	log.Info("Ignored")
	if got := strings.TrimSpace(out.String()); got != "" {
		t.Fatalf("expected no output for info, got %q", got)
	}

	log.Error("Kept")
	if got := strings.TrimSpace(out.String()); got == "" {
		t.Fatal("expected output for error")
	}
}

func TestLoggerEnvironmentOverrides(t *testing.T) {
	t.Setenv("VOICEMORPH_LOG_LEVEL", "debug")
	t.Setenv("VOICEMORPH_LOG_FORMAT", "text")
	defer unsetLoggingEnv(t)

	var out bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{Format: "json", Level: "error"}, &out, nil)
	if err != nil {
		t.Fatalf("newWithWriter error: %v", err)
	}

	log.Debug("Debug enabled", "component", "test")
	line := strings.TrimSpace(out.String())
	if line == "" {
		t.Fatal("expected debug output with env override")
	}
	if strings.HasPrefix(line, "{") {
		t.Fatalf("expected text format override, got %q", line)
	}
}

func TestLoggerRingCapture(t *testing.T) {
	unsetLoggingEnv(t)

	var out bytes.Buffer
	ring := NewRing(3)
	log, err := newWithWriter(config.LoggingConfig{Format: "json", Level: "info"}, &out, ring)
	if err != nil {
		t.Fatalf("newWithWriter error: %v", err)
	}

	log.With("component", "engine").Info("first")
	log.Info("second")
	log.Debug("filtered out")

	entries := ring.Snapshot()
	if len(entries) != 2 {
		t.Fatalf("ring entries = %d, want 2", len(entries))
	}
	if entries[0].Message != "first" || entries[0].Component != "engine" {
		t.Fatalf("entries[0] = %+v", entries[0])
	}
	if entries[1].Message != "second" {
		t.Fatalf("entries[1].Message = %q, want %q", entries[1].Message, "second")
	}
}

func TestRingEvictsOldest(t *testing.T) {
	ring := NewRing(2)
	ring.Append(LogEntry{Message: "a"})
	ring.Append(LogEntry{Message: "b"})
	ring.Append(LogEntry{Message: "c"})

	entries := ring.Snapshot()
	if len(entries) != 2 {
		t.Fatalf("ring entries = %d, want 2", len(entries))
	}
	if entries[0].Message != "b" || entries[1].Message != "c" {
		t.Fatalf("entries = %+v, want oldest evicted", entries)
	}
}

func TestRingDefaultCapacity(t *testing.T) {
	ring := NewRing(0)
	for i := 0; i < DefaultRingCapacity+10; i++ {
		ring.Append(LogEntry{Message: "m"})
	}

	if ring.Len() != DefaultRingCapacity {
		t.Fatalf("ring len = %d, want %d", ring.Len(), DefaultRingCapacity)
	}
}

func unsetLoggingEnv(t *testing.T) {
	t.Helper()
	_ = os.Unsetenv("VOICEMORPH_LOG_LEVEL")
	_ = os.Unsetenv("VOICEMORPH_LOG_FORMAT")
	_ = os.Unsetenv("VOICEMORPH_LOG_ADD_SOURCE")
}
