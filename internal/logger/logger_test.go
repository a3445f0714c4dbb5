package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogger_WritesPerLevelFiles(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLogger(dir)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	defer l.Close()

	l.Info("model %s ready", "Yolo 8 Nano")
	l.Warning("slow download")
	l.Error("boom %d", 42)

	checks := map[string]string{
		InfoFile:    "model Yolo 8 Nano ready",
		WarningFile: "slow download",
		ErrorFile:   "boom 42",
	}
	for file, want := range checks {
		data, err := os.ReadFile(filepath.Join(dir, file))
		if err != nil {
			t.Fatalf("Failed to read %s: %v", file, err)
		}
		if !strings.Contains(string(data), want) {
			t.Errorf("%s should contain %q, got %q", file, want, string(data))
		}
	}
}

func TestLogger_CleanLogs(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLogger(dir)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	defer l.Close()

	l.Error("first failure")
	if err := l.CleanLogs(ErrorFile); err != nil {
		t.Fatalf("CleanLogs failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, ErrorFile))
	if err != nil {
		t.Fatalf("Failed to read error log: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("Expected empty error log, got %q", string(data))
	}

	l.Error("second failure")
	data, _ = os.ReadFile(filepath.Join(dir, ErrorFile))
	if !strings.Contains(string(data), "second failure") {
		t.Errorf("Logger should keep writing after clean, got %q", string(data))
	}

	if err := l.CleanLogs("other.log"); err == nil {
		t.Error("Expected error for unknown log file")
	}
}

func TestNewDiscard(t *testing.T) {
	l := NewDiscard()
	l.Info("dropped")
	l.Warning("dropped")
	l.Error("dropped")

	if l.Dir() != "" {
		t.Errorf("Expected no log directory, got %q", l.Dir())
	}
	if err := l.CleanLogs(InfoFile); err == nil {
		t.Error("A discarding logger has no files to clean")
	}
	if err := l.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}
