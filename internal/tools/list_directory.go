package tools

import (
	"context"
	"fmt"
)

// ListDirectoryTool lists direct children of an in-boundary directory.
// Listings are always live; nothing is cached between calls.
type ListDirectoryTool struct{}

func NewListDirectoryTool() *ListDirectoryTool {
	return &ListDirectoryTool{}
}

func (t *ListDirectoryTool) Name() string {
	return "list_directory"
}

func (t *ListDirectoryTool) Description() string {
	return "List the entries of a directory inside the project root, optionally filtered by a glob pattern."
}

func (t *ListDirectoryTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Directory to list (relative to the project root, defaults to the root itself)",
			},
			"pattern": map[string]interface{}{
				"type":        "string",
				"description": "Optional glob pattern applied to entry names",
			},
		},
	}
}

func (t *ListDirectoryTool) Execute(ctx context.Context, env *Env, params map[string]interface{}) (interface{}, error) {
	path := GetStringParam(params, "path", ".")
	pattern := GetStringParam(params, "pattern", "")

	entries, err := env.Guard.ListDir(path, pattern)
	if err != nil {
		return nil, err
	}

	listed := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		listed = append(listed, map[string]interface{}{
			"path":   entry.Path,
			"size":   entry.Size,
			"is_dir": entry.IsDir,
			"mode":   fmt.Sprintf("%o", entry.Mode.Perm()),
		})
	}

	return map[string]interface{}{
		"path":    path,
		"entries": listed,
		"count":   len(listed),
	}, nil
}
