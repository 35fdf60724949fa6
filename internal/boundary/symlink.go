package boundary

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// maxHops caps the total number of symlink resolutions for one path. A loop
// is normally caught by the visited set; the cap covers chains built from
// distinct links.
const maxHops = 255

// ResolveSymlinks walks path component by component, resolving each symlink
// link-by-link and re-running the containment test at every hop. A single
// check on the original path is not enough: an in-boundary file can itself
// be a symlink pointing outside, planted by an earlier tool call.
//
// Nonexistent components succeed (valid for paths about to be created).
// Underlying I/O errors other than not-exist are returned untouched.
func ResolveSymlinks(path, root string) (string, error) {
	if !Contained(path, root) {
		if filepath.IsAbs(path) {
			return "", &Violation{Reason: ReasonOutsideBoundary, Candidate: path}
		}
		return "", &Violation{Reason: ReasonEscapesBoundary, Candidate: path}
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", &Violation{Reason: ReasonInvalidPath, Candidate: path}
	}
	if rel == "." {
		return root, nil
	}

	visited := make(map[string]struct{})
	hops := 0
	current := root
	components := strings.Split(rel, string(filepath.Separator))

	for i, component := range components {
		current = filepath.Join(current, component)
		for {
			info, lerr := os.Lstat(current)
			if lerr != nil {
				if errors.Is(lerr, fs.ErrNotExist) {
					// Nothing deeper can exist either; the remainder is the
					// about-to-be-created tail.
					return filepath.Join(append([]string{current}, components[i+1:]...)...), nil
				}
				return "", lerr
			}
			if info.Mode()&fs.ModeSymlink == 0 {
				break
			}
			target, rerr := os.Readlink(current)
			if rerr != nil {
				return "", rerr
			}
			if !filepath.IsAbs(target) {
				target = filepath.Join(filepath.Dir(current), target)
			}
			target = filepath.Clean(target)
			if !Contained(target, root) {
				return "", &Violation{Reason: ReasonSymlinkEscapesBoundary, Candidate: path}
			}
			if _, seen := visited[target]; seen {
				return "", &Violation{Reason: ReasonSymlinkLoop, Candidate: path}
			}
			visited[current] = struct{}{}
			hops++
			if hops > maxHops {
				return "", &Violation{Reason: ReasonSymlinkLoop, Candidate: path}
			}
			current = target
		}
	}
	return current, nil
}
