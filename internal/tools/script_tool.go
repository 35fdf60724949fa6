package tools

import (
	"context"
	"fmt"

	"github.com/codefionn/toolguard/internal/logger"
)

// ScriptTool runs a script inside the session's stripped interpreter. All
// effects flow through the bridge functions, which re-enter the validators
// call by call.
type ScriptTool struct{}

func NewScriptTool() *ScriptTool {
	return &ScriptTool{}
}

func (t *ScriptTool) Name() string {
	return "run_script"
}

func (t *ScriptTool) Description() string {
	return "Run a script in the session sandbox. File and command access go through the same validation as the direct tools."
}

func (t *ScriptTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"script": map[string]interface{}{
				"type":        "string",
				"description": "Script source to execute",
			},
			"args": map[string]interface{}{
				"type":        "object",
				"description": "Optional structured arguments exposed to the script as `args`",
			},
		},
		"required": []string{"script"},
	}
}

func (t *ScriptTool) Execute(ctx context.Context, env *Env, params map[string]interface{}) (interface{}, error) {
	script := GetStringParam(params, "script", "")
	if script == "" {
		return nil, fmt.Errorf("script is required")
	}
	if env.Session == nil {
		return nil, fmt.Errorf("run_script requires a session")
	}

	var args map[string]interface{}
	if raw, ok := params["args"].(map[string]interface{}); ok {
		args = raw
	}

	box := env.Session.Sandbox()
	if box == nil {
		return nil, fmt.Errorf("no sandbox configured for this session")
	}

	logger.Debug("run_script: %d bytes, session %s", len(script), env.Session.ID)
	result, err := box.Execute(ctx, script, args)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"result": result,
	}, nil
}
