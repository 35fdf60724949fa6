package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/google/shlex"

	"github.com/codefionn/toolguard/internal/allowlist"
	"github.com/codefionn/toolguard/internal/logger"
	"github.com/codefionn/toolguard/internal/shell"
)

// CommandTool runs one external program through the allowlist engine. The
// command string is tokenized, never handed to a shell, so metacharacters
// are ordinary argument bytes.
type CommandTool struct {
	engine *allowlist.Engine
	runner *shell.Runner
}

func NewCommandTool(engine *allowlist.Engine, runner *shell.Runner) *CommandTool {
	return &CommandTool{engine: engine, runner: runner}
}

func (t *CommandTool) Name() string {
	return "run_command"
}

func (t *CommandTool) Description() string {
	return "Run an allowlisted program inside the project root. The command is tokenized, not interpreted by a shell."
}

func (t *CommandTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"command": map[string]interface{}{
				"type":        "string",
				"description": "The command line to run",
			},
			"timeout_seconds": map[string]interface{}{
				"type":        "integer",
				"description": "Optional timeout in seconds",
			},
			"stdin": map[string]interface{}{
				"type":        "string",
				"description": "Optional standard input",
			},
			"allow_destructive": map[string]interface{}{
				"type":        "boolean",
				"description": "Explicit override for operations that discard or rewrite work",
			},
		},
		"required": []string{"command"},
	}
}

func (t *CommandTool) Execute(ctx context.Context, env *Env, params map[string]interface{}) (interface{}, error) {
	command := GetStringParam(params, "command", "")
	if command == "" {
		return nil, fmt.Errorf("command is required")
	}

	argv, err := shlex.Split(command)
	if err != nil {
		return nil, fmt.Errorf("cannot tokenize command: %w", err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("command is empty after tokenization")
	}

	req := allowlist.Request{
		Program:          argv[0],
		Args:             argv[1:],
		Root:             env.Root,
		AllowDestructive: GetBoolParam(params, "allow_destructive", false),
	}
	// A session-level pre-authorized prefix admits commands outside the
	// allow set. It is not a destructive override: a destructive invocation
	// still needs the explicit per-call flag, and the block set still wins.
	if env.Session != nil && env.Session.IsCommandAuthorized(command) {
		req.AllowUnlisted = true
	}

	if err := t.engine.Authorize(req); err != nil {
		return nil, err
	}

	opts := shell.Options{Stdin: GetStringParam(params, "stdin", "")}
	if seconds := GetIntParam(params, "timeout_seconds", 0); seconds > 0 {
		opts.Timeout = time.Duration(seconds) * time.Second
	}

	logger.Debug("run_command: %v", argv)
	result, err := t.runner.Run(ctx, argv, env.Root, opts)
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
