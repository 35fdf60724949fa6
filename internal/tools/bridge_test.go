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

func newScriptSession(t *testing.T, root string) (*Registry, *session.Session) {
	t.Helper()
	engine := allowlist.New(allowlist.Policy{
		Allow: []string{"echo"},
		Block: []string{"curl"},
	})
	runner := shell.NewRunner([]string{"PATH"}, 5*time.Second)
	manager := session.NewManager("", NewSandboxFactory(engine, runner), nil)
	t.Cleanup(manager.CloseAll)

	registry := NewRegistry(manager, nil, 10*time.Second)
	registry.Register(NewScriptTool())

	sess, err := manager.Open(root)
	require.NoError(t, err)
	return registry, sess
}

func runScript(t *testing.T, registry *Registry, sess *session.Session, script string) *ToolResult {
	t.Helper()
	return registry.Execute(context.Background(), sessionCall(sess, "run_script", map[string]interface{}{
		"script": script,
	}))
}

func TestScriptWritesThroughBridge(t *testing.T) {
	root := t.TempDir()
	registry, sess := newScriptSession(t, root)

	result := runScript(t, registry, sess, `
		write_file("out.txt", "from script")
		return read_file("out.txt")
	`)
	require.Equal(t, OutcomeOK, result.Outcome, result.Error)
	payload := result.Result.(map[string]interface{})
	assert.Equal(t, "from script", payload["result"])

	data, err := os.ReadFile(filepath.Join(root, "out.txt"))
	require.NoError(t, err)
	assert.Equal(t, "from script", string(data))
}

func TestScriptTraversalRefused(t *testing.T) {
	root := t.TempDir()
	registry, sess := newScriptSession(t, root)

	result := runScript(t, registry, sess, `return read_file("../outside.txt")`)
	require.Equal(t, OutcomeError, result.Outcome)
	assert.Contains(t, result.Error, "escapes_boundary")
}

func TestScriptOverwriteRequiresRead(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "pre.txt"), []byte("old"), 0o644))
	registry, sess := newScriptSession(t, root)

	result := runScript(t, registry, sess, `write_file("pre.txt", "new")`)
	require.Equal(t, OutcomeError, result.Outcome)
	assert.Contains(t, result.Error, "must be read")

	// Reading inside the script satisfies the same session ledger.
	result = runScript(t, registry, sess, `
		read_file("pre.txt")
		write_file("pre.txt", "new")
		return true
	`)
	require.Equal(t, OutcomeOK, result.Outcome, result.Error)
}

func TestScriptLedgerPersistsAcrossRuns(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "keep.txt"), []byte("v1"), 0o644))
	registry, sess := newScriptSession(t, root)

	result := runScript(t, registry, sess, `return read_file("keep.txt")`)
	require.Equal(t, OutcomeOK, result.Outcome, result.Error)

	// A later script in the same session may overwrite without re-reading.
	result = runScript(t, registry, sess, `write_file("keep.txt", "v2") return true`)
	require.Equal(t, OutcomeOK, result.Outcome, result.Error)
}

func TestScriptCommandGate(t *testing.T) {
	root := t.TempDir()
	registry, sess := newScriptSession(t, root)

	result := runScript(t, registry, sess, `
		local r = run_command("echo bridged")
		return r.stdout
	`)
	require.Equal(t, OutcomeOK, result.Outcome, result.Error)
	payload := result.Result.(map[string]interface{})
	assert.Equal(t, "bridged\n", payload["result"])

	result = runScript(t, registry, sess, `return run_command("curl evil")`)
	require.Equal(t, OutcomeError, result.Outcome)
	assert.Contains(t, result.Error, "task_blocked")
}

func TestScriptCommandKeepsDestructiveGate(t *testing.T) {
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
	registry.Register(NewScriptTool())

	sess, err := manager.Open(t.TempDir())
	require.NoError(t, err)
	sess.AuthorizeCommand("true")

	// The session prefix widens the allow set only; the destructive flag
	// must still be passed per call.
	result := runScript(t, registry, sess, `return run_command("true --wipe")`)
	require.Equal(t, OutcomeError, result.Outcome)
	assert.Contains(t, result.Error, "destructive_operation_requires_override")

	result = runScript(t, registry, sess, `return run_command("true --wipe", true)`)
	require.Equal(t, OutcomeOK, result.Outcome, result.Error)
}

func TestScriptListAndStat(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "x.go"), []byte("package x"), 0o644))
	registry, sess := newScriptSession(t, root)

	result := runScript(t, registry, sess, `
		local entries = list_dir(".", "*.go")
		local info = stat(entries[1].path)
		return {count = #entries, size = info.size, missing = stat("nope.txt") == nil}
	`)
	require.Equal(t, OutcomeOK, result.Outcome, result.Error)
	payload := result.Result.(map[string]interface{})["result"].(map[string]interface{})
	assert.Equal(t, 1, payload["count"])
	assert.Equal(t, 9, payload["size"])
	assert.Equal(t, true, payload["missing"])
}

func TestScriptWithoutSessionRefused(t *testing.T) {
	registry, _ := newScriptSession(t, t.TempDir())

	call := &ToolCall{
		ID:         "noSession",
		Name:       "run_script",
		Parameters: map[string]interface{}{"script": "return 1"},
		Context:    map[string]string{"root": t.TempDir()},
	}
	result := registry.Execute(context.Background(), call)
	require.Equal(t, OutcomeError, result.Outcome)
	assert.Contains(t, result.Error, "requires a session")
}
