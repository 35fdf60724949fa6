package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.DefaultTimeout <= 0 || cfg.ScriptTimeout <= 0 {
		t.Error("timeouts must default to positive values")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("log level = %q", cfg.LogLevel)
	}
	if len(cfg.Shell.Allow) == 0 || len(cfg.Shell.Block) == 0 {
		t.Error("shell policy defaults missing")
	}
	if len(cfg.EnvAllowlist) == 0 {
		t.Error("env allowlist defaults missing")
	}
	for _, task := range cfg.Build.Allow {
		if _, ok := cfg.Build.Tasks[task]; !ok {
			t.Errorf("allowed task %q has no template", task)
		}
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DefaultTimeout != 30 {
		t.Errorf("timeout = %d", cfg.DefaultTimeout)
	}
}

func TestLoadOverridesOnlyProvidedFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
		"default_root": "/srv/project",
		"default_timeout_seconds": 10,
		"shell": {"allow": ["ls"], "block": ["curl"]}
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DefaultRoot != "/srv/project" {
		t.Errorf("default root = %q", cfg.DefaultRoot)
	}
	if cfg.DefaultTimeout != 10 {
		t.Errorf("timeout = %d", cfg.DefaultTimeout)
	}
	if len(cfg.Shell.Allow) != 1 || cfg.Shell.Allow[0] != "ls" {
		t.Errorf("shell allow = %v", cfg.Shell.Allow)
	}
	// Untouched sections keep their defaults.
	if cfg.LogLevel != "info" {
		t.Errorf("log level = %q", cfg.LogLevel)
	}
	if len(cfg.VCS.Allow) == 0 {
		t.Error("vcs defaults lost")
	}
}

func TestLoadRejectsBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.json")

	cfg := DefaultConfig()
	cfg.DefaultRoot = "/work"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.DefaultRoot != "/work" {
		t.Errorf("default root = %q", loaded.DefaultRoot)
	}
}
