package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// PolicyConfig is the serialized form of an allowlist policy for one call
// site (shell commands, build tasks, or version-control subcommands).
type PolicyConfig struct {
	Allow     []string            `json:"allow,omitempty"`
	Block     []string            `json:"block,omitempty"`
	SafePaths []string            `json:"safe_paths,omitempty"`
	Tasks     map[string][]string `json:"tasks,omitempty"` // build tool only: task name -> argv template
}

// Config represents application configuration
type Config struct {
	// DefaultRoot is the fallback project root used when a caller supplies
	// neither a session id nor a direct root. DEPRECATED: callers should open
	// a session; resolution through this field is logged on every use.
	DefaultRoot string `json:"default_root,omitempty"`

	DefaultTimeout int `json:"default_timeout_seconds"`
	ScriptTimeout  int `json:"script_timeout_seconds"`

	LogLevel  string `json:"log_level"` // debug, info, warn, error, none
	LogPath   string `json:"-"`
	AuditPath string `json:"audit_path,omitempty"`

	// EnvAllowlist names the only environment variables forwarded to spawned
	// processes. Everything else is withheld by construction.
	EnvAllowlist []string `json:"env_allowlist,omitempty"`

	Shell PolicyConfig `json:"shell"`
	VCS   PolicyConfig `json:"vcs"`
	Build PolicyConfig `json:"build"`
}

func defaultConfigDir() string {
	switch runtime.GOOS {
	case "windows":
		if appData := strings.TrimSpace(os.Getenv("APPDATA")); appData != "" {
			return filepath.Join(appData, "toolguard")
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, "AppData", "Roaming", "toolguard")
	default:
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".config", "toolguard")
	}
}

func defaultStateDir() string {
	switch runtime.GOOS {
	case "linux":
		if stateHome := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); stateHome != "" {
			return filepath.Join(stateHome, "toolguard")
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".local", "state", "toolguard")
	case "windows":
		if localAppData := strings.TrimSpace(os.Getenv("LOCALAPPDATA")); localAppData != "" {
			return filepath.Join(localAppData, "toolguard")
		}
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, "AppData", "Local", "toolguard")
	default:
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, ".config", "toolguard")
	}
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	stateDir := defaultStateDir()

	return &Config{
		DefaultTimeout: 30,
		ScriptTimeout:  120,
		LogLevel:       "info",
		LogPath:        filepath.Join(stateDir, "toolguard.log"),
		AuditPath:      filepath.Join(stateDir, "audit.jsonl"),
		EnvAllowlist:   []string{"PATH", "HOME", "LANG", "TZ", "TERM"},
		Shell: PolicyConfig{
			Allow: []string{
				"ls", "cat", "head", "tail", "wc", "grep", "find",
				"diff", "sort", "uniq", "echo", "which", "env",
				"go", "gofmt", "make", "npm", "npx", "node",
				"python3", "pip3", "cargo", "rustc",
			},
			Block: []string{
				"sudo", "su", "doas", "chown", "chmod", "mount",
				"curl", "wget", "ssh", "scp", "nc", "dd", "mkfs",
			},
		},
		VCS: PolicyConfig{
			Allow: []string{
				"status", "log", "diff", "show", "branch", "add",
				"commit", "checkout", "switch", "restore", "stash",
				"merge", "rebase", "reset", "clean", "tag", "rev-parse",
				"ls-files", "check-ignore", "push", "pull", "fetch",
				"filter-branch",
			},
			Block: []string{"daemon", "instaweb"},
		},
		Build: PolicyConfig{
			Allow: []string{"build", "test", "lint", "fmt", "clean"},
			Tasks: map[string][]string{
				"build": {"go", "build", "./..."},
				"test":  {"go", "test", "./..."},
				"lint":  {"go", "vet", "./..."},
				"fmt":   {"gofmt", "-l", "."},
				"clean": {"go", "clean"},
			},
		},
	}
}

// Load loads configuration from file
func Load(path string) (*Config, error) {
	// Start with default config
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return default config if file doesn't exist
			return config, nil
		}
		return nil, err
	}

	// Unmarshal into default config (overrides only provided fields)
	if err := json.Unmarshal(data, config); err != nil {
		return nil, err
	}

	if config.DefaultTimeout <= 0 {
		config.DefaultTimeout = 30
	}
	if config.ScriptTimeout <= 0 {
		config.ScriptTimeout = 120
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.LogPath == "" {
		config.LogPath = filepath.Join(defaultStateDir(), "toolguard.log")
	}

	return config, nil
}

// Save saves configuration to file
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// GetConfigPath returns the default config path
func GetConfigPath() string {
	return filepath.Join(defaultConfigDir(), "config.json")
}
