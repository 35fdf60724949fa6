package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"warning": LevelWarn,
		"error":   LevelError,
		"none":    LevelNone,
		"bogus":   LevelInfo,
	}
	for input, want := range cases {
		if got := ParseLevel(input); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")
	l, err := New(LevelWarn, path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer l.Close()

	l.Debug("hidden debug")
	l.Info("hidden info")
	l.Warn("visible warning")
	l.Error("visible error")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if strings.Contains(content, "hidden") {
		t.Error("filtered levels leaked into the log")
	}
	if !strings.Contains(content, "visible warning") || !strings.Contains(content, "visible error") {
		t.Error("expected entries missing")
	}
	if !strings.Contains(content, "[WARN]") {
		t.Error("level tag missing")
	}
}

func TestSetLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")
	l, err := New(LevelError, path)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	l.Info("before")
	l.SetLevel(LevelDebug)
	l.Info("after")

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "before") {
		t.Error("entry below level written")
	}
	if !strings.Contains(string(data), "after") {
		t.Error("entry after SetLevel missing")
	}
}

func TestDisabledLogger(t *testing.T) {
	l, err := New(LevelNone, "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer l.Close()

	// Must not panic or create files.
	l.Info("dropped")
}

func TestNewCreatesLogDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deep", "dir", "test.log")
	l, err := New(LevelInfo, path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer l.Close()

	l.Info("hello")
	if _, err := os.Stat(path); err != nil {
		t.Errorf("log file not created: %v", err)
	}
}
