package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNew_Development(t *testing.T) {
	log, err := New(true)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	if log == nil {
		t.Fatal("expected non-nil logger")
	}

	// Should not panic
	log.Info("test message")
}

func TestNew_Production(t *testing.T) {
	log, err := New(false)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	if log == nil {
		t.Fatal("expected non-nil logger")
	}
}

func TestNew_SessionFile(t *testing.T) {
	path := SessionPath(filepath.Join(t.TempDir(), "logs"), "shadow", time.Now())

	log, err := New(false, path)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	log.Info("run finished")
	log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected session log file: %v", err)
	}
	if !strings.Contains(string(data), "run finished") {
		t.Errorf("session log missing entry: %s", data)
	}
}

func TestSessionPath(t *testing.T) {
	got := SessionPath("logs", "live", time.Date(2024, 5, 6, 22, 25, 0, 0, time.UTC))
	want := filepath.Join("logs", "session_live_2024-05-06.log")
	if got != want {
		t.Errorf("SessionPath() = %s, want %s", got, want)
	}
}

func TestMust(t *testing.T) {
	// Should not panic
	log := Must(true)
	if log == nil {
		t.Fatal("expected non-nil logger")
	}
}
