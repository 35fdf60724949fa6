// Package audit records security-relevant events as JSON lines. Every
// boundary violation, refused command, and sandbox invocation lands here;
// the trail is append-only and logging never fails the guarded operation.
package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/codefionn/toolguard/internal/logger"
)

// EventType classifies an audit entry.
type EventType string

const (
	// EventPathViolation records a rejected candidate path.
	EventPathViolation EventType = "path_violation"
	// EventCommandDenied records a refused program or task invocation.
	EventCommandDenied EventType = "command_denied"
	// EventCommandRun records an authorized external invocation.
	EventCommandRun EventType = "command_run"
	// EventToolInvoked records a tool call entering the execution layer.
	EventToolInvoked EventType = "tool_invoked"
	// EventToolTimeout records an invocation whose outcome is unknown
	// because its deadline expired mid-flight.
	EventToolTimeout EventType = "tool_timeout"
	// EventSessionOpened records session creation.
	EventSessionOpened EventType = "session_opened"
	// EventSessionClosed records session teardown.
	EventSessionClosed EventType = "session_closed"
)

// Event is one audit line. Candidate holds the path or argument exactly as
// the agent supplied it; resolved host locations are never written.
type Event struct {
	Timestamp  time.Time `json:"timestamp"`
	Type       EventType `json:"type"`
	Session    string    `json:"session,omitempty"`
	Tool       string    `json:"tool,omitempty"`
	Candidate  string    `json:"candidate,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Success    bool      `json:"success"`
	DurationMs int64     `json:"duration_ms,omitempty"`
	Message    string    `json:"message,omitempty"`
}

// Trail appends events to a JSON-line file. Safe for concurrent use.
type Trail struct {
	mu   sync.Mutex
	file *os.File
}

// Open creates or appends to the audit file at path.
func Open(path string) (*Trail, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, err
	}
	return &Trail{file: file}, nil
}

// Discard returns a trail that drops every event. Used in tests and when no
// audit path is configured.
func Discard() *Trail {
	return &Trail{}
}

// Log appends one event. It never returns an error: a broken audit sink must
// not turn into a denial of the guarded operation, so failures are reported
// to the operational log only.
func (t *Trail) Log(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.file == nil {
		return
	}
	line, err := json.Marshal(event)
	if err != nil {
		logger.Error("audit: marshal failed: %v", err)
		return
	}
	if _, err := t.file.Write(append(line, '\n')); err != nil {
		logger.Error("audit: write failed: %v", err)
	}
}

// Close closes the underlying file.
func (t *Trail) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.file == nil {
		return nil
	}
	err := t.file.Close()
	t.file = nil
	return err
}
