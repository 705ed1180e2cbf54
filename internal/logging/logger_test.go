package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLogger_CreatesLogFile(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewLogger(dir, LevelInfo)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	defer func() { _ = logger.Close() }()

	logger.Info("engine started", "tick_interval", "3s")

	data, err := os.ReadFile(filepath.Join(dir, logFileName))
	if err != nil {
		t.Fatalf("log file not created: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(data, &entry); err != nil {
		t.Fatalf("log entry is not valid JSON: %v", err)
	}
	if entry["msg"] != "engine started" {
		t.Errorf("msg = %v, want %q", entry["msg"], "engine started")
	}
	if entry["tick_interval"] != "3s" {
		t.Errorf("tick_interval = %v, want %q", entry["tick_interval"], "3s")
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewLogger(dir, LevelWarn)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	defer func() { _ = logger.Close() }()

	logger.Info("should be filtered")
	logger.Warn("should appear")

	data, _ := os.ReadFile(filepath.Join(dir, logFileName))
	content := string(data)

	if strings.Contains(content, "should be filtered") {
		t.Error("INFO message logged despite WARN level")
	}
	if !strings.Contains(content, "should appear") {
		t.Error("WARN message missing")
	}
}

func TestLogger_ContextPropagation(t *testing.T) {
	dir := t.TempDir()

	logger, err := NewLogger(dir, LevelDebug)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	defer func() { _ = logger.Close() }()

	child := logger.WithTask("task-1").WithPhase("green").WithRole("implementer")
	child.Info("verdict received")

	data, _ := os.ReadFile(filepath.Join(dir, logFileName))

	var entry map[string]any
	if err := json.Unmarshal(data, &entry); err != nil {
		t.Fatalf("log entry is not valid JSON: %v", err)
	}
	if entry["task_id"] != "task-1" {
		t.Errorf("task_id = %v, want task-1", entry["task_id"])
	}
	if entry["phase"] != "green" {
		t.Errorf("phase = %v, want green", entry["phase"])
	}
	if entry["role"] != "implementer" {
		t.Errorf("role = %v, want implementer", entry["role"])
	}
}

func TestLogger_ChildDoesNotMutateParent(t *testing.T) {
	logger := NopLogger()
	child := logger.WithTask("task-9")

	if len(logger.attrs) != 0 {
		t.Errorf("parent attrs mutated: %v", logger.attrs)
	}
	if len(child.attrs) != 1 {
		t.Errorf("child attrs = %d, want 1", len(child.attrs))
	}
}

func TestParseLevel_Unknown(t *testing.T) {
	if parseLevel("nonsense") != parseLevel(LevelInfo) {
		t.Error("unknown level should default to INFO")
	}
}

func TestNopLogger(t *testing.T) {
	logger := NopLogger()
	logger.Info("discarded")
	if err := logger.Close(); err != nil {
		t.Errorf("Close() on NopLogger error = %v", err)
	}
}
