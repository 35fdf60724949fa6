package tools

import (
	"context"
	"fmt"
)

// MakeDirectoryTool creates an in-boundary directory, validating every
// ancestor that has to be created along the way.
type MakeDirectoryTool struct{}

func NewMakeDirectoryTool() *MakeDirectoryTool {
	return &MakeDirectoryTool{}
}

func (t *MakeDirectoryTool) Name() string {
	return "make_directory"
}

func (t *MakeDirectoryTool) Description() string {
	return "Create a directory inside the project root, including missing parents."
}

func (t *MakeDirectoryTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Directory to create (relative to the project root)",
			},
		},
		"required": []string{"path"},
	}
}

func (t *MakeDirectoryTool) Execute(ctx context.Context, env *Env, params map[string]interface{}) (interface{}, error) {
	path := GetStringParam(params, "path", "")
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}

	if err := env.Guard.MkdirAll(path); err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"path":    path,
		"created": true,
	}, nil
}
