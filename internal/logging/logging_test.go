package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console.log")

	l, err := New("debug", path)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	l.Debug("hello from test")
	_ = l.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "hello from test") {
		t.Errorf("log file missing entry, got %q", string(data))
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, err := New("chatty", ""); err == nil {
		t.Fatal("New() with unknown level should return error")
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatal("OrNop(nil) returned nil")
	}
}
