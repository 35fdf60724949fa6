package vcs

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/codefionn/toolguard/internal/allowlist"
	"github.com/codefionn/toolguard/internal/shell"
)

// DefaultDestructiveRules mark the git operations that rewrite history or
// discard uncommitted work. Matching invocations require the explicit
// override even when the subcommand itself is allowlisted.
var DefaultDestructiveRules = []allowlist.DestructiveRule{
	{Program: "push", Flags: []string{"--force", "-f", "--force-with-lease"}, Description: "force push rewrites remote history"},
	{Program: "reset", Flags: []string{"--hard"}, Description: "hard reset discards uncommitted changes"},
	{Program: "clean", Flags: []string{"-f", "-fd", "-df", "-fdx", "-fx"}, Description: "clean deletes untracked files"},
	{Program: "filter-branch", Description: "filter-branch rewrites repository history"},
	{Program: "rebase", Description: "rebase rewrites commit history"},
	{Program: "branch", Flags: []string{"-D"}, Description: "force-deletes a branch"},
	{Program: "stash", Flags: []string{"drop", "clear"}, Description: "discards stashed changes"},
}

// Git implements the VCS interface for Git repositories.
type Git struct {
	root   string
	engine *allowlist.Engine
	runner *shell.Runner

	// repoRootOnce ensures we only look up the repo root once
	repoRootOnce sync.Once
	repoRoot     string
	repoRootErr  error

	// ignoreCache caches git ignore results
	ignoreCache map[string]bool
	ignoreMutex sync.RWMutex
}

// NewGit creates a Git gate for the repository at root. engine authorizes
// subcommands; runner supplies the restricted process environment. Every git
// process, queries included, goes through both.
func NewGit(root string, engine *allowlist.Engine, runner *shell.Runner) *Git {
	return &Git{
		root:        root,
		engine:      engine,
		runner:      runner,
		ignoreCache: make(map[string]bool),
	}
}

// query runs one read-only git subcommand in dir. The subcommand passes the
// engine like any other invocation; the runner supplies the scrubbed
// environment.
func (g *Git) query(ctx context.Context, dir string, args ...string) (*shell.Result, error) {
	if err := g.engine.Authorize(allowlist.Request{
		Program: args[0],
		Args:    args[1:],
		Root:    g.root,
	}); err != nil {
		return nil, err
	}
	if dir == "" {
		dir = g.root
	}
	argv := append([]string{"git"}, args...)
	result, err := g.runner.Run(ctx, argv, dir, shell.Options{})
	if err != nil {
		return nil, err
	}
	if result.TimedOut {
		return nil, fmt.Errorf("git %s timed out", args[0])
	}
	return result, nil
}

// getRepoRoot returns the cached repository root, looking it up if necessary.
func (g *Git) getRepoRoot(ctx context.Context) (string, error) {
	g.repoRootOnce.Do(func() {
		g.repoRoot, g.repoRootErr = g.RepositoryRoot(ctx, g.root)
	})
	return g.repoRoot, g.repoRootErr
}

// RepositoryRoot returns the root directory of the Git repository
// containing the given directory.
func (g *Git) RepositoryRoot(ctx context.Context, dir string) (string, error) {
	result, err := g.query(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	if result.ExitCode != 0 {
		return "", fmt.Errorf("not in a git repository")
	}
	return strings.TrimSpace(result.Stdout), nil
}

// IsIgnored checks if a file/directory path is ignored by Git.
// The path should be absolute. Returns false if not in a repository.
func (g *Git) IsIgnored(ctx context.Context, absPath string) (bool, error) {
	repoRoot, err := g.getRepoRoot(ctx)
	if err != nil {
		if _, ok := allowlist.AsDenial(err); ok {
			return false, err
		}
		return false, nil // Not in a repo, so not ignored
	}

	relPath, err := filepath.Rel(repoRoot, absPath)
	if err != nil || strings.HasPrefix(relPath, "..") {
		return false, nil // Path outside repo, not ignored
	}

	g.ignoreMutex.RLock()
	ignored, ok := g.ignoreCache[relPath]
	g.ignoreMutex.RUnlock()
	if ok {
		return ignored, nil
	}

	result, err := g.query(ctx, repoRoot, "check-ignore", "--quiet", "--", relPath)
	if err != nil {
		return false, err
	}
	ignored = result.ExitCode == 0

	g.ignoreMutex.Lock()
	g.ignoreCache[relPath] = ignored
	g.ignoreMutex.Unlock()

	return ignored, nil
}

// CurrentBranch returns the name of the current branch.
// Returns an empty string if not in a repository or on a detached HEAD.
func (g *Git) CurrentBranch(ctx context.Context) (string, error) {
	repoRoot, err := g.getRepoRoot(ctx)
	if err != nil {
		if _, ok := allowlist.AsDenial(err); ok {
			return "", err
		}
		return "", nil
	}

	result, err := g.query(ctx, repoRoot, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	if result.ExitCode != 0 {
		return "", nil
	}

	branch := strings.TrimSpace(result.Stdout)
	if branch == "HEAD" {
		// Detached HEAD state.
		return "", nil
	}

	return branch, nil
}

// Run executes one git subcommand after the gate approves it. The process
// runs in the repository root with the restricted environment.
func (g *Git) Run(ctx context.Context, args []string, allowDestructive bool) (*shell.Result, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("no subcommand given")
	}
	if err := g.engine.Authorize(allowlist.Request{
		Program:          args[0],
		Args:             args[1:],
		Root:             g.root,
		AllowDestructive: allowDestructive,
	}); err != nil {
		return nil, err
	}
	argv := append([]string{"git"}, args...)
	return g.runner.Run(ctx, argv, g.root, shell.Options{})
}
