package tools

import (
	"context"
	"fmt"

	"github.com/codefionn/toolguard/internal/logger"
)

// DeletePathTool removes an in-boundary file or empty directory.
type DeletePathTool struct{}

func NewDeletePathTool() *DeletePathTool {
	return &DeletePathTool{}
}

func (t *DeletePathTool) Name() string {
	return "delete_path"
}

func (t *DeletePathTool) Description() string {
	return "Delete a file or empty directory inside the project root."
}

func (t *DeletePathTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Path to delete (relative to the project root)",
			},
		},
		"required": []string{"path"},
	}
}

func (t *DeletePathTool) Execute(ctx context.Context, env *Env, params map[string]interface{}) (interface{}, error) {
	path := GetStringParam(params, "path", "")
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}

	if err := env.Guard.Delete(path); err != nil {
		return nil, err
	}

	logger.Info("delete_path: removed %s", path)

	return map[string]interface{}{
		"path":    path,
		"deleted": true,
	}, nil
}
