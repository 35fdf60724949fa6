// Package boundary proves that agent-supplied paths resolve inside a
// project root. It is the only component allowed to turn an untrusted
// candidate path into a path that may be handed to the filesystem.
package boundary

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Reason identifies why a candidate path was rejected. The set is closed;
// every rejection carries exactly one reason.
type Reason string

const (
	// ReasonEscapesBoundary marks a relative candidate that climbs out of
	// the root via traversal.
	ReasonEscapesBoundary Reason = "escapes_boundary"
	// ReasonOutsideBoundary marks an absolute candidate that never was
	// inside the root.
	ReasonOutsideBoundary Reason = "outside_boundary"
	// ReasonSymlinkEscapesBoundary marks a path whose symlink chain leaves
	// the root at some hop.
	ReasonSymlinkEscapesBoundary Reason = "symlink_escapes_boundary"
	// ReasonSymlinkLoop marks a symlink chain that revisits a hop.
	ReasonSymlinkLoop Reason = "symlink_loop"
	// ReasonInvalidPath marks a candidate that is not a usable path at all.
	ReasonInvalidPath Reason = "invalid_path"
)

// Violation is the typed rejection produced by the validator. Candidate is
// the path exactly as the agent supplied it; callers rendering diagnostics
// must not add the resolved host location.
type Violation struct {
	Reason    Reason
	Candidate string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("path rejected (%s): %s", v.Reason, v.Candidate)
}

// AsViolation unwraps err into a *Violation if it is one.
func AsViolation(err error) (*Violation, bool) {
	v, ok := err.(*Violation)
	return v, ok
}

// NormalizeRoot cleans and absolutizes a project root. The result has no
// trailing separator and no `.`/`..` components.
func NormalizeRoot(root string) (string, error) {
	if strings.TrimSpace(root) == "" {
		return "", &Violation{Reason: ReasonInvalidPath, Candidate: root}
	}
	clean := filepath.Clean(root)
	if !filepath.IsAbs(clean) {
		abs, err := filepath.Abs(clean)
		if err != nil {
			return "", &Violation{Reason: ReasonInvalidPath, Candidate: root}
		}
		clean = abs
	}
	return clean, nil
}

// Contained reports whether an already-normalized absolute path lies inside
// root. The prefix test requires root plus a separator so that /project2
// never matches root /project.
func Contained(path, root string) bool {
	if path == root {
		return true
	}
	return strings.HasPrefix(path, root+string(filepath.Separator))
}

// Validate canonicalizes candidate against root, proves containment, then
// resolves the symlink ancestry of the result. The returned path is absolute
// and in-boundary at the instant of validation only; callers that act later
// re-validate through the I/O guard.
func Validate(candidate, root string) (string, error) {
	resolved, normRoot, err := ValidateLexical(candidate, root)
	if err != nil {
		return "", err
	}
	return ResolveSymlinks(resolved, normRoot)
}

// ValidateLexical performs the containment proof without touching the
// filesystem. It returns the normalized path and the normalized root.
func ValidateLexical(candidate, root string) (string, string, error) {
	normRoot, err := NormalizeRoot(root)
	if err != nil {
		return "", "", err
	}
	if candidate == "" || strings.ContainsRune(candidate, 0) {
		return "", "", &Violation{Reason: ReasonInvalidPath, Candidate: candidate}
	}
	if filepath.IsAbs(candidate) {
		resolved := filepath.Clean(candidate)
		if !Contained(resolved, normRoot) {
			return "", "", &Violation{Reason: ReasonOutsideBoundary, Candidate: candidate}
		}
		return resolved, normRoot, nil
	}
	resolved := filepath.Clean(filepath.Join(normRoot, candidate))
	if !Contained(resolved, normRoot) {
		return "", "", &Violation{Reason: ReasonEscapesBoundary, Candidate: candidate}
	}
	return resolved, normRoot, nil
}
