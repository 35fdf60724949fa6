package vcs

import (
	"context"

	"github.com/codefionn/toolguard/internal/shell"
)

// MockVCS is a mock implementation of the VCS interface for testing.
type MockVCS struct {
	// RepositoryRootFunc is the mock implementation for RepositoryRoot
	RepositoryRootFunc func(ctx context.Context, dir string) (string, error)

	// IsIgnoredFunc is the mock implementation for IsIgnored
	IsIgnoredFunc func(ctx context.Context, absPath string) (bool, error)

	// CurrentBranchFunc is the mock implementation for CurrentBranch
	CurrentBranchFunc func(ctx context.Context) (string, error)

	// RunFunc is the mock implementation for Run
	RunFunc func(ctx context.Context, args []string, allowDestructive bool) (*shell.Result, error)
}

// RepositoryRoot calls the mock RepositoryRootFunc if set, otherwise returns empty string.
func (m *MockVCS) RepositoryRoot(ctx context.Context, dir string) (string, error) {
	if m.RepositoryRootFunc != nil {
		return m.RepositoryRootFunc(ctx, dir)
	}
	return "", nil
}

// IsIgnored calls the mock IsIgnoredFunc if set, otherwise returns false.
func (m *MockVCS) IsIgnored(ctx context.Context, absPath string) (bool, error) {
	if m.IsIgnoredFunc != nil {
		return m.IsIgnoredFunc(ctx, absPath)
	}
	return false, nil
}

// CurrentBranch calls the mock CurrentBranchFunc if set, otherwise returns empty string.
func (m *MockVCS) CurrentBranch(ctx context.Context) (string, error) {
	if m.CurrentBranchFunc != nil {
		return m.CurrentBranchFunc(ctx)
	}
	return "", nil
}

// Run calls the mock RunFunc if set, otherwise returns an empty result.
func (m *MockVCS) Run(ctx context.Context, args []string, allowDestructive bool) (*shell.Result, error) {
	if m.RunFunc != nil {
		return m.RunFunc(ctx, args, allowDestructive)
	}
	return &shell.Result{}, nil
}
