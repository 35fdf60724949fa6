// Package tools is the execution surface exposed to the agent. Every call
// flows through one dispatcher that resolves the effective root, serializes
// per-session work, audits violations, and maps deadline expiry to a
// distinct unknown-outcome result.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/codefionn/toolguard/internal/allowlist"
	"github.com/codefionn/toolguard/internal/audit"
	"github.com/codefionn/toolguard/internal/boundary"
	"github.com/codefionn/toolguard/internal/fsguard"
	"github.com/codefionn/toolguard/internal/logger"
	"github.com/codefionn/toolguard/internal/session"
)

// Outcome classifies a finished tool call. Timeout is deliberately distinct
// from error: a timed-out call may or may not have taken effect, and the
// caller must not treat it as either success or clean failure.
type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeError   Outcome = "error"
	OutcomeTimeout Outcome = "timeout"
)

// ErrTimeout marks an operation killed at its deadline with the outcome
// unknown.
var ErrTimeout = errors.New("operation timed out; outcome unknown")

// ToolSpec represents the static specification of a tool (name, description,
// parameters). Specs are immutable singletons shared across registries.
type ToolSpec interface {
	Name() string
	Description() string
	Parameters() map[string]interface{}
}

// Env carries the per-call execution scope resolved by the dispatcher.
type Env struct {
	// Root is the effective project root, already normalized.
	Root string
	// Session is the owning session, nil for direct-root calls.
	Session *session.Session
	// Guard performs all file I/O for this call.
	Guard *fsguard.Guard
}

// ToolExecutor handles the actual execution of a tool within a resolved
// scope.
type ToolExecutor interface {
	Execute(ctx context.Context, env *Env, params map[string]interface{}) (interface{}, error)
}

// Tool combines ToolSpec and ToolExecutor.
type Tool interface {
	ToolSpec
	ToolExecutor
}

// ToolCall represents one incoming tool call.
type ToolCall struct {
	ID         string                 `json:"id"`
	Name       string                 `json:"name"`
	Parameters map[string]interface{} `json:"parameters"`
	// Context carries scope resolution keys: "session_id" or "root".
	Context map[string]string `json:"context,omitempty"`
}

// ToolResult represents the result of a tool execution.
type ToolResult struct {
	ID      string      `json:"id"`
	Outcome Outcome     `json:"outcome"`
	Result  interface{} `json:"result,omitempty"`
	Error   string      `json:"error,omitempty"`
	// Reason carries the closed rejection code when the error is a boundary
	// violation or an allowlist denial.
	Reason     string `json:"reason,omitempty"`
	DurationMs int64  `json:"duration_ms,omitempty"`
}

// Registry manages available tools and dispatches calls.
type Registry struct {
	entries map[string]Tool
	manager *session.Manager
	trail   *audit.Trail
	timeout time.Duration
}

// NewRegistry creates a tool registry. manager resolves call scopes; trail
// receives the audit events; timeout bounds every call lacking its own.
func NewRegistry(manager *session.Manager, trail *audit.Trail, timeout time.Duration) *Registry {
	if trail == nil {
		trail = audit.Discard()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Registry{
		entries: make(map[string]Tool),
		manager: manager,
		trail:   trail,
		timeout: timeout,
	}
}

// Register adds a tool to the registry.
func (r *Registry) Register(tool Tool) {
	r.entries[tool.Name()] = tool
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	tool, ok := r.entries[name]
	return tool, ok
}

// ListSpecs returns all registered tool specs.
func (r *Registry) ListSpecs() []ToolSpec {
	result := make([]ToolSpec, 0, len(r.entries))
	for _, tool := range r.entries {
		result = append(result, tool)
	}
	return result
}

// ToJSONSchema converts tools to JSON schema format for LLM consumption.
func (r *Registry) ToJSONSchema() []map[string]interface{} {
	schemas := make([]map[string]interface{}, 0, len(r.entries))
	for _, tool := range r.entries {
		schemas = append(schemas, map[string]interface{}{
			"type": "function",
			"function": map[string]interface{}{
				"name":        tool.Name(),
				"description": tool.Description(),
				"parameters":  tool.Parameters(),
			},
		})
	}
	return schemas
}

// Execute dispatches one tool call. A refused call is terminal: the result
// carries the rejection reason and nothing is retried on the caller's
// behalf.
func (r *Registry) Execute(ctx context.Context, call *ToolCall) *ToolResult {
	tool, ok := r.entries[call.Name]
	if !ok {
		return &ToolResult{ID: call.ID, Outcome: OutcomeError, Error: "tool not found: " + call.Name}
	}

	sessionID := call.Context["session_id"]
	directRoot := call.Context["root"]
	root, sess, err := r.manager.ResolveRoot(sessionID, directRoot)
	if err != nil {
		return r.finish(call, sessionID, time.Now(), nil, err)
	}

	env := &Env{Root: root, Session: sess}
	if sess != nil {
		env.Guard = sess.Guard()
	} else {
		guard, gerr := fsguard.New(root)
		if gerr != nil {
			return r.finish(call, sessionID, time.Now(), nil, gerr)
		}
		env.Guard = guard
	}

	r.trail.Log(audit.Event{
		Type:    audit.EventToolInvoked,
		Session: sessionID,
		Tool:    call.Name,
		Success: true,
	})

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	var result interface{}
	run := func() {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("tool %s panicked: %v", call.Name, rec)
				err = fmt.Errorf("tool %s failed internally", call.Name)
			}
		}()
		result, err = tool.Execute(callCtx, env, call.Parameters)
	}

	if sess != nil {
		// Per-session serialization: concurrent calls against one session
		// queue behind each other; different sessions run in parallel.
		if doErr := sess.Do(callCtx, run); doErr != nil {
			return r.finish(call, sessionID, start, nil, doErr)
		}
	} else {
		run()
	}

	return r.finish(call, sessionID, start, result, err)
}

// finish maps an execution outcome onto the result taxonomy and writes the
// audit record.
func (r *Registry) finish(call *ToolCall, sessionID string, start time.Time, result interface{}, err error) *ToolResult {
	duration := time.Since(start).Milliseconds()
	out := &ToolResult{ID: call.ID, Outcome: OutcomeOK, Result: result, DurationMs: duration}
	if err == nil {
		return out
	}

	out.Result = nil
	switch {
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		out.Outcome = OutcomeTimeout
		out.Error = ErrTimeout.Error()
		r.trail.Log(audit.Event{
			Type:       audit.EventToolTimeout,
			Session:    sessionID,
			Tool:       call.Name,
			DurationMs: duration,
		})
	default:
		out.Outcome = OutcomeError
		out.Error = err.Error()
		if v, ok := boundary.AsViolation(err); ok {
			out.Reason = string(v.Reason)
			r.trail.Log(audit.Event{
				Type:      audit.EventPathViolation,
				Session:   sessionID,
				Tool:      call.Name,
				Candidate: v.Candidate,
				Reason:    string(v.Reason),
			})
		} else if d, ok := allowlist.AsDenial(err); ok {
			out.Reason = string(d.Reason)
			r.trail.Log(audit.Event{
				Type:      audit.EventCommandDenied,
				Session:   sessionID,
				Tool:      call.Name,
				Candidate: d.Name,
				Reason:    string(d.Reason),
			})
		}
	}
	return out
}

// GetStringParam returns a string parameter or the default.
func GetStringParam(params map[string]interface{}, key string, defaultVal string) string {
	if val, ok := params[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return defaultVal
}

// GetIntParam returns an int parameter or the default.
func GetIntParam(params map[string]interface{}, key string, defaultVal int) int {
	if val, ok := params[key]; ok {
		switch v := val.(type) {
		case int:
			return v
		case float64:
			return int(v)
		case json.Number:
			if i, err := v.Int64(); err == nil {
				return int(i)
			}
		}
	}
	return defaultVal
}

// GetBoolParam returns a bool parameter or the default.
func GetBoolParam(params map[string]interface{}, key string, defaultVal bool) bool {
	if val, ok := params[key]; ok {
		if b, ok := val.(bool); ok {
			return b
		}
	}
	return defaultVal
}
