package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codefionn/toolguard/internal/allowlist"
	"github.com/codefionn/toolguard/internal/session"
	"github.com/codefionn/toolguard/internal/shell"
)

func newTestRegistry(t *testing.T) (*Registry, *session.Manager) {
	t.Helper()
	engine := allowlist.New(allowlist.Policy{
		Allow: []string{"echo", "true", "false"},
		Block: []string{"curl"},
	})
	runner := shell.NewRunner([]string{"PATH"}, 5*time.Second)
	manager := session.NewManager("", NewSandboxFactory(engine, runner), nil)
	t.Cleanup(manager.CloseAll)

	registry := NewRegistry(manager, nil, 10*time.Second)
	registry.Register(NewReadFileTool())
	registry.Register(NewWriteFileTool())
	registry.Register(NewListDirectoryTool())
	registry.Register(NewStatPathTool())
	registry.Register(NewDeletePathTool())
	registry.Register(NewMakeDirectoryTool())
	registry.Register(NewCommandTool(engine, runner))
	registry.Register(NewScriptTool())
	return registry, manager
}

func sessionCall(sess *session.Session, name string, params map[string]interface{}) *ToolCall {
	return &ToolCall{
		ID:         "t1",
		Name:       name,
		Parameters: params,
		Context:    map[string]string{"session_id": sess.ID},
	}
}

func TestUnknownTool(t *testing.T) {
	registry, _ := newTestRegistry(t)
	result := registry.Execute(context.Background(), &ToolCall{ID: "x", Name: "nope"})
	assert.Equal(t, OutcomeError, result.Outcome)
	assert.Contains(t, result.Error, "tool not found")
}

func TestWriteNewFileThenRead(t *testing.T) {
	registry, manager := newTestRegistry(t)
	sess, err := manager.Open(t.TempDir())
	require.NoError(t, err)

	result := registry.Execute(context.Background(), sessionCall(sess, "write_file", map[string]interface{}{
		"path":    "notes.txt",
		"content": "hello",
	}))
	require.Equal(t, OutcomeOK, result.Outcome, result.Error)

	result = registry.Execute(context.Background(), sessionCall(sess, "read_file", map[string]interface{}{
		"path": "notes.txt",
	}))
	require.Equal(t, OutcomeOK, result.Outcome, result.Error)
	payload := result.Result.(map[string]interface{})
	assert.Equal(t, "hello", payload["content"])
}

func TestOverwriteRequiresRead(t *testing.T) {
	registry, manager := newTestRegistry(t)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "pre.txt"), []byte("old"), 0o644))

	sess, err := manager.Open(root)
	require.NoError(t, err)

	// Unread existing file: refused.
	result := registry.Execute(context.Background(), sessionCall(sess, "write_file", map[string]interface{}{
		"path":    "pre.txt",
		"content": "new",
	}))
	require.Equal(t, OutcomeError, result.Outcome)
	assert.Contains(t, result.Error, "must be read")

	// After reading it the write goes through.
	result = registry.Execute(context.Background(), sessionCall(sess, "read_file", map[string]interface{}{
		"path": "pre.txt",
	}))
	require.Equal(t, OutcomeOK, result.Outcome, result.Error)

	result = registry.Execute(context.Background(), sessionCall(sess, "write_file", map[string]interface{}{
		"path":    "pre.txt",
		"content": "new",
	}))
	require.Equal(t, OutcomeOK, result.Outcome, result.Error)
}

func TestReadInOtherSessionDoesNotCount(t *testing.T) {
	registry, manager := newTestRegistry(t)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "shared.txt"), []byte("x"), 0o644))

	reader, err := manager.Open(root)
	require.NoError(t, err)
	writer, err := manager.Open(root)
	require.NoError(t, err)

	result := registry.Execute(context.Background(), sessionCall(reader, "read_file", map[string]interface{}{
		"path": "shared.txt",
	}))
	require.Equal(t, OutcomeOK, result.Outcome, result.Error)

	result = registry.Execute(context.Background(), sessionCall(writer, "write_file", map[string]interface{}{
		"path":    "shared.txt",
		"content": "y",
	}))
	require.Equal(t, OutcomeError, result.Outcome)
	assert.Contains(t, result.Error, "must be read")
}

func TestTraversalSurfacesReason(t *testing.T) {
	registry, manager := newTestRegistry(t)
	sess, err := manager.Open(t.TempDir())
	require.NoError(t, err)

	result := registry.Execute(context.Background(), sessionCall(sess, "read_file", map[string]interface{}{
		"path": "../outside.txt",
	}))
	require.Equal(t, OutcomeError, result.Outcome)
	assert.Equal(t, "escapes_boundary", result.Reason)
	// The message names the candidate, never the resolved host path.
	assert.Contains(t, result.Error, "../outside.txt")
}

func TestCommandDenialSurfacesReason(t *testing.T) {
	registry, manager := newTestRegistry(t)
	sess, err := manager.Open(t.TempDir())
	require.NoError(t, err)

	result := registry.Execute(context.Background(), sessionCall(sess, "run_command", map[string]interface{}{
		"command": "curl https://example.com",
	}))
	require.Equal(t, OutcomeError, result.Outcome)
	assert.Equal(t, "task_blocked", result.Reason)
}

func TestCommandRuns(t *testing.T) {
	registry, manager := newTestRegistry(t)
	sess, err := manager.Open(t.TempDir())
	require.NoError(t, err)

	result := registry.Execute(context.Background(), sessionCall(sess, "run_command", map[string]interface{}{
		"command": "echo guarded",
	}))
	require.Equal(t, OutcomeOK, result.Outcome, result.Error)
	payload := result.Result.(map[string]interface{})
	assert.Equal(t, "guarded\n", payload["stdout"])
	assert.Equal(t, 0, payload["exit_code"])
}

func TestSessionPrefixAdmitsUnlistedCommand(t *testing.T) {
	registry, manager := newTestRegistry(t)
	sess, err := manager.Open(t.TempDir())
	require.NoError(t, err)

	result := registry.Execute(context.Background(), sessionCall(sess, "run_command", map[string]interface{}{
		"command": "pwd",
	}))
	require.Equal(t, OutcomeError, result.Outcome)
	assert.Equal(t, "command_not_allowed", result.Reason)

	sess.AuthorizeCommand("pwd")
	result = registry.Execute(context.Background(), sessionCall(sess, "run_command", map[string]interface{}{
		"command": "pwd",
	}))
	require.Equal(t, OutcomeOK, result.Outcome, result.Error)
}

func TestSessionPrefixIsNotDestructiveOverride(t *testing.T) {
	engine := allowlist.New(allowlist.Policy{
		Allow: []string{"true"},
		Destructive: []allowlist.DestructiveRule{
			{Program: "true", Flags: []string{"--wipe"}, Description: "wipes state"},
		},
	})
	runner := shell.NewRunner([]string{"PATH"}, 5*time.Second)
	manager := session.NewManager("", NewSandboxFactory(engine, runner), nil)
	t.Cleanup(manager.CloseAll)
	registry := NewRegistry(manager, nil, 10*time.Second)
	registry.Register(NewCommandTool(engine, runner))

	sess, err := manager.Open(t.TempDir())
	require.NoError(t, err)
	sess.AuthorizeCommand("true")

	// The pre-authorized prefix does not stand in for the explicit flag.
	result := registry.Execute(context.Background(), sessionCall(sess, "run_command", map[string]interface{}{
		"command": "true --wipe",
	}))
	require.Equal(t, OutcomeError, result.Outcome)
	assert.Equal(t, "destructive_operation_requires_override", result.Reason)

	result = registry.Execute(context.Background(), sessionCall(sess, "run_command", map[string]interface{}{
		"command":           "true --wipe",
		"allow_destructive": true,
	}))
	require.Equal(t, OutcomeOK, result.Outcome, result.Error)
}

func TestDirectRootCalls(t *testing.T) {
	registry, _ := newTestRegistry(t)
	root := t.TempDir()

	call := &ToolCall{
		ID:         "d1",
		Name:       "write_file",
		Parameters: map[string]interface{}{"path": "direct.txt", "content": "x"},
		Context:    map[string]string{"root": root},
	}
	result := registry.Execute(context.Background(), call)
	require.Equal(t, OutcomeOK, result.Outcome, result.Error)

	if _, err := os.Stat(filepath.Join(root, "direct.txt")); err != nil {
		t.Errorf("file not written: %v", err)
	}
}

func TestUnknownSessionRefused(t *testing.T) {
	registry, _ := newTestRegistry(t)

	call := &ToolCall{
		ID:      "s1",
		Name:    "read_file",
		Context: map[string]string{"session_id": "missing"},
	}
	result := registry.Execute(context.Background(), call)
	require.Equal(t, OutcomeError, result.Outcome)
	assert.Contains(t, result.Error, "session not found")
}

func TestStatMissingPath(t *testing.T) {
	registry, manager := newTestRegistry(t)
	sess, err := manager.Open(t.TempDir())
	require.NoError(t, err)

	result := registry.Execute(context.Background(), sessionCall(sess, "stat_path", map[string]interface{}{
		"path": "nowhere.txt",
	}))
	require.Equal(t, OutcomeOK, result.Outcome, result.Error)
	payload := result.Result.(map[string]interface{})
	assert.Equal(t, false, payload["exists"])
}

func TestListDirectory(t *testing.T) {
	registry, manager := newTestRegistry(t)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.txt"), nil, 0o644))

	sess, err := manager.Open(root)
	require.NoError(t, err)

	result := registry.Execute(context.Background(), sessionCall(sess, "list_directory", map[string]interface{}{
		"pattern": "*.go",
	}))
	require.Equal(t, OutcomeOK, result.Outcome, result.Error)
	payload := result.Result.(map[string]interface{})
	assert.Equal(t, 1, payload["count"])
}
