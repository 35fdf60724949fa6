package tools

import (
	"context"
	"fmt"

	"github.com/codefionn/toolguard/internal/boundary"
	"github.com/codefionn/toolguard/internal/logger"
)

// ReadFileTool reads file contents and feeds the session's read ledger.
type ReadFileTool struct{}

func NewReadFileTool() *ReadFileTool {
	return &ReadFileTool{}
}

func (t *ReadFileTool) Name() string {
	return "read_file"
}

func (t *ReadFileTool) Description() string {
	return "Read the content of a file inside the project root."
}

func (t *ReadFileTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Path to the file to read (relative to the project root)",
			},
		},
		"required": []string{"path"},
	}
}

func (t *ReadFileTool) Execute(ctx context.Context, env *Env, params map[string]interface{}) (interface{}, error) {
	path := GetStringParam(params, "path", "")
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}

	data, err := env.Guard.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if env.Session != nil {
		resolved, verr := boundary.Validate(path, env.Root)
		if verr == nil {
			env.Session.TrackRead(resolved)
		}
	}

	logger.Debug("read_file: %s (%d bytes)", path, len(data))

	return map[string]interface{}{
		"path":    path,
		"content": string(data),
		"size":    len(data),
	}, nil
}
