// Package shell spawns authorized external processes. The environment is
// built empty and only allowlisted variables are copied in; the working
// directory is always the validated session root.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/codefionn/toolguard/internal/logger"
)

// Result captures the outcome of one finished process.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
	// TimedOut marks a process killed at its deadline. Output captured up to
	// that point is discarded: a partially observed run must not look like a
	// completed one.
	TimedOut bool
}

// Options adjust one invocation.
type Options struct {
	Timeout time.Duration
	Stdin   string
	// Env adds explicit key=value pairs on top of the allowlisted base.
	Env map[string]string
}

// Runner executes processes under a fixed environment policy.
type Runner struct {
	envAllowlist   []string
	defaultTimeout time.Duration
}

// NewRunner creates a Runner. envAllowlist names the only inherited
// variables; defaultTimeout applies when Options carries none.
func NewRunner(envAllowlist []string, defaultTimeout time.Duration) *Runner {
	if defaultTimeout <= 0 {
		defaultTimeout = 30 * time.Second
	}
	return &Runner{
		envAllowlist:   append([]string(nil), envAllowlist...),
		defaultTimeout: defaultTimeout,
	}
}

// buildEnv starts from nothing and copies in only allowlisted variables.
// Secrets in the parent environment are withheld by construction, not by
// filtering.
func (r *Runner) buildEnv(extra map[string]string) []string {
	env := make([]string, 0, len(r.envAllowlist)+len(extra))
	for _, key := range r.envAllowlist {
		if value, ok := os.LookupEnv(key); ok {
			env = append(env, key+"="+value)
		}
	}
	for key, value := range extra {
		env = append(env, key+"="+value)
	}
	return env
}

// Run executes argv with the working directory pinned to root. argv[0] must
// already have passed the allowlist engine; Run performs no authorization of
// its own.
func (r *Runner) Run(ctx context.Context, argv []string, root string, opts Options) (*Result, error) {
	if len(argv) == 0 {
		return nil, errors.New("empty command")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = r.defaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	cmd.Dir = root
	cmd.Env = r.buildEnv(opts.Env)
	// The deadline must reach grandchildren too: the child gets its own
	// process group and the whole group is killed on cancellation. WaitDelay
	// bounds the wait even if a survivor still holds the stdio pipes.
	setProcessGroup(cmd)
	cmd.Cancel = func() error { return killProcessGroup(cmd) }
	cmd.WaitDelay = time.Second
	if opts.Stdin != "" {
		cmd.Stdin = bytes.NewBufferString(opts.Stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	if runCtx.Err() == context.DeadlineExceeded {
		logger.Warn("command %s killed after %v; outcome unknown", argv[0], timeout)
		return &Result{TimedOut: true, Duration: duration}, nil
	}

	result := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: duration,
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return nil, fmt.Errorf("failed to run %s: %w", argv[0], err)
	}
	return result, nil
}
