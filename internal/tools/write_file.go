package tools

import (
	"context"
	"fmt"

	"github.com/codefionn/toolguard/internal/boundary"
	"github.com/codefionn/toolguard/internal/logger"
)

// WriteFileTool writes files under the read-before-write rule: creating a
// new file is always allowed, overwriting an existing one requires the
// session to have read it first.
type WriteFileTool struct{}

func NewWriteFileTool() *WriteFileTool {
	return &WriteFileTool{}
}

func (t *WriteFileTool) Name() string {
	return "write_file"
}

func (t *WriteFileTool) Description() string {
	return "Write content to a file inside the project root. Existing files must have been read in this session first."
}

func (t *WriteFileTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Path to the file to write (relative to the project root)",
			},
			"content": map[string]interface{}{
				"type":        "string",
				"description": "Content to write (optional, defaults to empty file)",
			},
		},
		"required": []string{"path"},
	}
}

func (t *WriteFileTool) Execute(ctx context.Context, env *Env, params map[string]interface{}) (interface{}, error) {
	path := GetStringParam(params, "path", "")
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}
	content := GetStringParam(params, "content", "")

	resolved, err := boundary.Validate(path, env.Root)
	if err != nil {
		return nil, err
	}

	exists, err := env.Guard.Exists(path)
	if err != nil {
		return nil, err
	}

	if env.Session != nil {
		if err := env.Session.EnsureWritable(resolved, exists); err != nil {
			return nil, fmt.Errorf("%w: %s", err, path)
		}
	}

	if err := env.Guard.WriteFile(path, []byte(content)); err != nil {
		logger.Error("write_file: error writing %s: %v", path, err)
		return nil, err
	}

	if env.Session != nil {
		env.Session.TrackWrite(resolved)
	}

	logger.Info("write_file: wrote %s (%d bytes)", path, len(content))

	return map[string]interface{}{
		"path":          path,
		"bytes_written": len(content),
		"created":       !exists,
	}, nil
}
