// Package buildtool runs named build tasks. A task is a fixed argv template
// from configuration; the agent picks a name, never an argv, so the task
// layer is immune to argument injection by construction. The name still
// passes through the allowlist engine so blocked tasks and malformed names
// are refused with the same taxonomy as shell commands.
package buildtool

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/codefionn/toolguard/internal/allowlist"
	"github.com/codefionn/toolguard/internal/logger"
	"github.com/codefionn/toolguard/internal/shell"
)

// Runner resolves task names to argv templates and executes them.
type Runner struct {
	engine  *allowlist.Engine
	shell   *shell.Runner
	tasks   map[string][]string
	timeout time.Duration
}

// NewRunner builds a task runner. tasks maps task names to argv templates;
// names absent from the engine's allow set are refused even when a template
// exists.
func NewRunner(engine *allowlist.Engine, sh *shell.Runner, tasks map[string][]string, timeout time.Duration) *Runner {
	copied := make(map[string][]string, len(tasks))
	for name, argv := range tasks {
		copied[name] = append([]string(nil), argv...)
	}
	return &Runner{engine: engine, shell: sh, tasks: copied, timeout: timeout}
}

// Tasks returns the configured task names in sorted order.
func (r *Runner) Tasks() []string {
	names := make([]string, 0, len(r.tasks))
	for name := range r.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run executes the named task in root. The argv comes solely from the
// configured template.
func (r *Runner) Run(ctx context.Context, name, root string) (*shell.Result, error) {
	if err := r.engine.Authorize(allowlist.Request{Program: name, Root: root}); err != nil {
		return nil, err
	}
	argv, ok := r.tasks[name]
	if !ok || len(argv) == 0 {
		return nil, &allowlist.Denial{Reason: allowlist.ReasonNotAllowed, Name: name, Detail: "no task template configured"}
	}
	logger.Debug("running task %s: %v", name, argv)
	result, err := r.shell.Run(ctx, argv, root, shell.Options{Timeout: r.timeout})
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", name, err)
	}
	return result, nil
}
