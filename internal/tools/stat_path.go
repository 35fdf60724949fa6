package tools

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"
)

// StatPathTool returns metadata for an in-boundary path. A nonexistent path
// is a normal answer, not an error; the path must still validate.
type StatPathTool struct{}

func NewStatPathTool() *StatPathTool {
	return &StatPathTool{}
}

func (t *StatPathTool) Name() string {
	return "stat_path"
}

func (t *StatPathTool) Description() string {
	return "Return metadata for a path inside the project root, including whether it exists."
}

func (t *StatPathTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Path to inspect (relative to the project root)",
			},
		},
		"required": []string{"path"},
	}
}

func (t *StatPathTool) Execute(ctx context.Context, env *Env, params map[string]interface{}) (interface{}, error) {
	path := GetStringParam(params, "path", "")
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}

	info, err := env.Guard.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]interface{}{
				"path":   path,
				"exists": false,
			}, nil
		}
		return nil, err
	}

	return map[string]interface{}{
		"path":     path,
		"exists":   true,
		"size":     info.Size,
		"is_dir":   info.IsDir,
		"mode":     fmt.Sprintf("%o", info.Mode.Perm()),
		"modified": info.ModTime.Format(time.RFC3339),
	}, nil
}
