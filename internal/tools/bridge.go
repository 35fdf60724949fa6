package tools

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/google/shlex"

	"github.com/codefionn/toolguard/internal/allowlist"
	"github.com/codefionn/toolguard/internal/boundary"
	"github.com/codefionn/toolguard/internal/sandbox"
	"github.com/codefionn/toolguard/internal/session"
	"github.com/codefionn/toolguard/internal/shell"
)

// NewSandboxFactory builds the per-session interpreter factory. Every bridge
// function closes over the owning session and re-enters the path and command
// validators on each call; the interpreter never holds validated state.
func NewSandboxFactory(engine *allowlist.Engine, runner *shell.Runner) func(*session.Session) *sandbox.Instance {
	return func(s *session.Session) *sandbox.Instance {
		return sandbox.New(sandbox.Options{Hosts: bridgeHosts(s, engine, runner)})
	}
}

func bridgeHosts(s *session.Session, engine *allowlist.Engine, runner *shell.Runner) map[string]sandbox.HostFunc {
	guard := s.Guard()

	return map[string]sandbox.HostFunc{
		"read_file": func(ctx context.Context, args []any) (any, error) {
			path, err := stringArg(args, 0, "path")
			if err != nil {
				return nil, err
			}
			data, err := guard.ReadFile(path)
			if err != nil {
				return nil, err
			}
			if resolved, verr := boundary.Validate(path, s.Root); verr == nil {
				s.TrackRead(resolved)
			}
			return string(data), nil
		},

		"write_file": func(ctx context.Context, args []any) (any, error) {
			path, err := stringArg(args, 0, "path")
			if err != nil {
				return nil, err
			}
			content, err := stringArg(args, 1, "content")
			if err != nil {
				return nil, err
			}
			resolved, err := boundary.Validate(path, s.Root)
			if err != nil {
				return nil, err
			}
			exists, err := guard.Exists(path)
			if err != nil {
				return nil, err
			}
			if err := s.EnsureWritable(resolved, exists); err != nil {
				return nil, fmt.Errorf("%w: %s", err, path)
			}
			if err := guard.WriteFile(path, []byte(content)); err != nil {
				return nil, err
			}
			s.TrackWrite(resolved)
			return len(content), nil
		},

		"list_dir": func(ctx context.Context, args []any) (any, error) {
			path, err := stringArg(args, 0, "path")
			if err != nil {
				return nil, err
			}
			pattern := ""
			if len(args) > 1 {
				if p, ok := args[1].(string); ok {
					pattern = p
				}
			}
			entries, err := guard.ListDir(path, pattern)
			if err != nil {
				return nil, err
			}
			out := make([]any, 0, len(entries))
			for _, entry := range entries {
				out = append(out, map[string]any{
					"path":   entry.Path,
					"size":   entry.Size,
					"is_dir": entry.IsDir,
				})
			}
			return out, nil
		},

		"stat": func(ctx context.Context, args []any) (any, error) {
			path, err := stringArg(args, 0, "path")
			if err != nil {
				return nil, err
			}
			info, err := guard.Stat(path)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return nil, nil
				}
				return nil, err
			}
			return map[string]any{
				"path":   info.Path,
				"size":   info.Size,
				"is_dir": info.IsDir,
			}, nil
		},

		"exists": func(ctx context.Context, args []any) (any, error) {
			path, err := stringArg(args, 0, "path")
			if err != nil {
				return nil, err
			}
			return guard.Exists(path)
		},

		"is_file": func(ctx context.Context, args []any) (any, error) {
			path, err := stringArg(args, 0, "path")
			if err != nil {
				return nil, err
			}
			info, err := guard.Stat(path)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return false, nil
				}
				return nil, err
			}
			return !info.IsDir, nil
		},

		"is_dir": func(ctx context.Context, args []any) (any, error) {
			path, err := stringArg(args, 0, "path")
			if err != nil {
				return nil, err
			}
			info, err := guard.Stat(path)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return false, nil
				}
				return nil, err
			}
			return info.IsDir, nil
		},

		"delete": func(ctx context.Context, args []any) (any, error) {
			path, err := stringArg(args, 0, "path")
			if err != nil {
				return nil, err
			}
			if err := guard.Delete(path); err != nil {
				return nil, err
			}
			return true, nil
		},

		"mkdir": func(ctx context.Context, args []any) (any, error) {
			path, err := stringArg(args, 0, "path")
			if err != nil {
				return nil, err
			}
			if err := guard.MkdirAll(path); err != nil {
				return nil, err
			}
			return true, nil
		},

		"run_command": func(ctx context.Context, args []any) (any, error) {
			command, err := stringArg(args, 0, "command")
			if err != nil {
				return nil, err
			}
			argv, err := shlex.Split(command)
			if err != nil {
				return nil, fmt.Errorf("cannot tokenize command: %w", err)
			}
			if len(argv) == 0 {
				return nil, fmt.Errorf("command is empty after tokenization")
			}
			allowDestructive := false
			if len(args) > 1 {
				if b, ok := args[1].(bool); ok {
					allowDestructive = b
				}
			}
			// Session pre-authorization only widens the allow set; the
			// destructive gate stays keyed to the explicit flag.
			if err := engine.Authorize(allowlist.Request{
				Program:          argv[0],
				Args:             argv[1:],
				Root:             s.Root,
				AllowDestructive: allowDestructive,
				AllowUnlisted:    s.IsCommandAuthorized(command),
			}); err != nil {
				return nil, err
			}
			result, err := runner.Run(ctx, argv, s.Root, shell.Options{})
			if err != nil {
				return nil, err
			}
			if result.TimedOut {
				return nil, ErrTimeout
			}
			return map[string]any{
				"stdout":      result.Stdout,
				"stderr":      result.Stderr,
				"exit_code":   result.ExitCode,
				"duration_ms": result.Duration.Milliseconds(),
			}, nil
		},

		"sleep_ms": func(ctx context.Context, args []any) (any, error) {
			ms, ok := intArg(args, 0)
			if !ok {
				return nil, fmt.Errorf("sleep_ms requires a duration")
			}
			select {
			case <-time.After(time.Duration(ms) * time.Millisecond):
				return nil, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
	}
}

func stringArg(args []any, index int, name string) (string, error) {
	if index >= len(args) {
		return "", fmt.Errorf("%s is required", name)
	}
	s, ok := args[index].(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string", name)
	}
	return s, nil
}

func intArg(args []any, index int) (int, bool) {
	if index >= len(args) {
		return 0, false
	}
	switch v := args[index].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	}
	return 0, false
}
