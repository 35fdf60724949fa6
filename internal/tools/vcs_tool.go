package tools

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/shlex"

	"github.com/codefionn/toolguard/internal/allowlist"
	"github.com/codefionn/toolguard/internal/shell"
	"github.com/codefionn/toolguard/internal/vcs"
)

// VCSTool runs gated version-control subcommands. Each project root gets
// its own gate instance so repository lookups stay cached per root.
type VCSTool struct {
	engine *allowlist.Engine
	runner *shell.Runner

	mu    sync.Mutex
	gates map[string]vcs.VCS
	// newGate is swappable for tests.
	newGate func(root string) vcs.VCS
}

func NewVCSTool(engine *allowlist.Engine, runner *shell.Runner) *VCSTool {
	t := &VCSTool{
		engine: engine,
		runner: runner,
		gates:  make(map[string]vcs.VCS),
	}
	t.newGate = func(root string) vcs.VCS {
		return vcs.NewGit(root, engine, runner)
	}
	return t
}

func (t *VCSTool) gate(root string) vcs.VCS {
	t.mu.Lock()
	defer t.mu.Unlock()
	g, ok := t.gates[root]
	if !ok {
		g = t.newGate(root)
		t.gates[root] = g
	}
	return g
}

func (t *VCSTool) Name() string {
	return "vcs_command"
}

func (t *VCSTool) Description() string {
	return "Run an allowlisted version-control subcommand inside the project root. History-rewriting operations require the destructive override."
}

func (t *VCSTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"args": map[string]interface{}{
				"type":        "string",
				"description": "Subcommand and arguments, e.g. \"status --short\"",
			},
			"allow_destructive": map[string]interface{}{
				"type":        "boolean",
				"description": "Explicit override for operations that rewrite history or discard work",
			},
		},
		"required": []string{"args"},
	}
}

func (t *VCSTool) Execute(ctx context.Context, env *Env, params map[string]interface{}) (interface{}, error) {
	raw := GetStringParam(params, "args", "")
	if raw == "" {
		return nil, fmt.Errorf("args is required")
	}

	args, err := shlex.Split(raw)
	if err != nil {
		return nil, fmt.Errorf("cannot tokenize arguments: %w", err)
	}
	if len(args) == 0 {
		return nil, &allowlist.Denial{Reason: allowlist.ReasonInvalidNameFormat, Name: raw}
	}

	allowDestructive := GetBoolParam(params, "allow_destructive", false)

	result, err := t.gate(env.Root).Run(ctx, args, allowDestructive)
	if err != nil {
		return nil, err
	}
	if result.TimedOut {
		return nil, ErrTimeout
	}

	return map[string]interface{}{
		"stdout":      result.Stdout,
		"stderr":      result.Stderr,
		"exit_code":   result.ExitCode,
		"duration_ms": result.Duration.Milliseconds(),
	}, nil
}
