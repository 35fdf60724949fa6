// Package fsguard performs file I/O with boundary re-validation around every
// syscall. Validation and the syscall are not atomic; between them a path
// component can be swapped for a symlink. Each operation therefore runs
// validate -> act -> re-validate, and refuses to confirm success when the
// post-check fails even if bytes already moved.
package fsguard

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/codefionn/toolguard/internal/boundary"
)

// FileInfo is the metadata shape returned to tool handlers.
type FileInfo struct {
	Path    string
	Size    int64
	Mode    fs.FileMode
	ModTime time.Time
	IsDir   bool
}

// Guard binds the validated-operation pipeline to one project root. It holds
// the root by value for the duration of its operations and caches nothing
// across calls.
type Guard struct {
	root string
}

// New returns a Guard for root. The root is normalized once; it is the
// caller's (session's) job to keep it immutable.
func New(root string) (*Guard, error) {
	normRoot, err := boundary.NormalizeRoot(root)
	if err != nil {
		return nil, err
	}
	return &Guard{root: normRoot}, nil
}

// Root returns the normalized project root.
func (g *Guard) Root() string { return g.root }

// operation describes one guarded filesystem operation. All operations share
// the same pipeline; only the descriptor and the action differ.
type operation struct {
	name         string
	createParent bool
}

// run is the single pipeline every operation flows through.
func (g *Guard) run(candidate string, op operation, act func(resolved string) error) error {
	resolved, err := boundary.Validate(candidate, g.root)
	if err != nil {
		return err
	}
	if op.createParent {
		if err := g.prepareParents(resolved); err != nil {
			return err
		}
	}
	if err := act(resolved); err != nil {
		return err
	}
	// Post-operation re-validation closes the window between the first check
	// and the syscall. A failure here is a boundary violation even though the
	// syscall succeeded: success is simply not confirmed.
	if _, err := boundary.ResolveSymlinks(resolved, g.root); err != nil {
		return err
	}
	return nil
}

// prepareParents validates the parent chain component by component before
// creating it. Each nonexistent ancestor is walked upward until an existing
// directory is found and checked; creating directories through a symlinked
// parent is the same escape as writing through one.
func (g *Guard) prepareParents(resolved string) error {
	parent := filepath.Dir(resolved)
	probe := parent
	for {
		if _, err := boundary.Validate(probe, g.root); err != nil {
			return err
		}
		info, err := os.Lstat(probe)
		if err == nil {
			if !info.IsDir() {
				return &fs.PathError{Op: "mkdir", Path: probe, Err: errors.New("not a directory")}
			}
			break
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		next := filepath.Dir(probe)
		if next == probe {
			break
		}
		probe = next
	}
	return os.MkdirAll(parent, 0o755)
}

// ReadFile reads the full content of an in-boundary file.
func (g *Guard) ReadFile(candidate string) ([]byte, error) {
	var data []byte
	err := g.run(candidate, operation{name: "read"}, func(resolved string) error {
		b, err := os.ReadFile(resolved)
		if err != nil {
			return err
		}
		data = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// WriteFile writes content to an in-boundary file, creating validated parent
// directories as needed.
func (g *Guard) WriteFile(candidate string, content []byte) error {
	return g.run(candidate, operation{name: "write", createParent: true}, func(resolved string) error {
		return os.WriteFile(resolved, content, 0o644)
	})
}

// Stat returns metadata for an in-boundary path.
func (g *Guard) Stat(candidate string) (*FileInfo, error) {
	var out *FileInfo
	err := g.run(candidate, operation{name: "stat"}, func(resolved string) error {
		info, err := os.Stat(resolved)
		if err != nil {
			return err
		}
		out = &FileInfo{
			Path:    candidate,
			Size:    info.Size(),
			Mode:    info.Mode(),
			ModTime: info.ModTime(),
			IsDir:   info.IsDir(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Exists reports whether an in-boundary path exists. The path must still
// validate even when absent.
func (g *Guard) Exists(candidate string) (bool, error) {
	exists := false
	err := g.run(candidate, operation{name: "exists"}, func(resolved string) error {
		_, serr := os.Stat(resolved)
		if serr == nil {
			exists = true
			return nil
		}
		if errors.Is(serr, fs.ErrNotExist) {
			return nil
		}
		return serr
	})
	if err != nil {
		return false, err
	}
	return exists, nil
}

// ListDir lists direct children of an in-boundary directory. pattern, when
// non-empty, is a doublestar glob matched against entry names.
func (g *Guard) ListDir(candidate, pattern string) ([]*FileInfo, error) {
	var out []*FileInfo
	err := g.run(candidate, operation{name: "list"}, func(resolved string) error {
		entries, err := os.ReadDir(resolved)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			if pattern != "" {
				ok, merr := doublestar.Match(pattern, entry.Name())
				if merr != nil {
					return merr
				}
				if !ok {
					continue
				}
			}
			info, ierr := entry.Info()
			if ierr != nil {
				continue
			}
			out = append(out, &FileInfo{
				Path:    filepath.Join(candidate, entry.Name()),
				Size:    info.Size(),
				Mode:    info.Mode(),
				ModTime: info.ModTime(),
				IsDir:   entry.IsDir(),
			})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes an in-boundary file or empty directory.
func (g *Guard) Delete(candidate string) error {
	return g.run(candidate, operation{name: "delete"}, func(resolved string) error {
		return os.Remove(resolved)
	})
}

// MkdirAll creates an in-boundary directory after validating its parent
// chain.
func (g *Guard) MkdirAll(candidate string) error {
	return g.run(candidate, operation{name: "mkdir", createParent: true}, func(resolved string) error {
		return os.MkdirAll(resolved, 0o755)
	})
}
