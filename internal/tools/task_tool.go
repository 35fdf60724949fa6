package tools

import (
	"context"
	"fmt"

	"github.com/codefionn/toolguard/internal/buildtool"
)

// TaskTool runs one named build task. The agent selects a name; the argv is
// fixed configuration.
type TaskTool struct {
	runner *buildtool.Runner
}

func NewTaskTool(runner *buildtool.Runner) *TaskTool {
	return &TaskTool{runner: runner}
}

func (t *TaskTool) Name() string {
	return "run_task"
}

func (t *TaskTool) Description() string {
	return "Run a named build task from the configured task set."
}

func (t *TaskTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"task": map[string]interface{}{
				"type":        "string",
				"description": "Name of the task to run",
				"enum":        t.runner.Tasks(),
			},
		},
		"required": []string{"task"},
	}
}

func (t *TaskTool) Execute(ctx context.Context, env *Env, params map[string]interface{}) (interface{}, error) {
	name := GetStringParam(params, "task", "")
	if name == "" {
		return nil, fmt.Errorf("task is required")
	}

	result, err := t.runner.Run(ctx, name, env.Root)
	if err != nil {
		return nil, err
	}
	if result.TimedOut {
		return nil, ErrTimeout
	}

	return map[string]interface{}{
		"task":        name,
		"stdout":      result.Stdout,
		"stderr":      result.Stderr,
		"exit_code":   result.ExitCode,
		"duration_ms": result.Duration.Milliseconds(),
	}, nil
}
