// Package vcs provides a version control system abstraction layer.
// It defines interfaces for common VCS operations, allowing for pluggable implementations.
// Subcommand execution is gated through the allowlist engine; destructive
// operations additionally require an explicit caller override.
package vcs

import (
	"context"

	"github.com/codefionn/toolguard/internal/shell"
)

// VCS represents a version control system.
type VCS interface {
	// RepositoryRoot returns the root directory of the VCS repository
	// containing the given directory. Returns an error if not in a repository.
	RepositoryRoot(ctx context.Context, dir string) (string, error)

	// IsIgnored checks if a file/directory path is ignored by the VCS.
	// The path should be absolute. Returns false if not in a repository.
	IsIgnored(ctx context.Context, absPath string) (bool, error)

	// CurrentBranch returns the name of the current branch.
	// Returns an empty string if not in a repository or on a detached HEAD.
	CurrentBranch(ctx context.Context) (string, error)

	// Run executes one authorized subcommand inside the repository.
	// args[0] is the subcommand name; the gate refuses unknown subcommands
	// and destructive ones lacking the override.
	Run(ctx context.Context, args []string, allowDestructive bool) (*shell.Result, error)
}
