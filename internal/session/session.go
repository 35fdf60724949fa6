// Package session binds agent work to an immutable project root and carries
// the per-session state the validators depend on: the read-before-write
// ledger and the session-authorized command prefixes.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/codefionn/toolguard/internal/fsguard"
	"github.com/codefionn/toolguard/internal/sandbox"
)

// ErrReadBeforeWriteRequired is returned when a session attempts to modify
// an existing file it has not read first.
var ErrReadBeforeWriteRequired = errors.New("file must be read in this session before it can be modified")

// ErrClosed is returned for operations on a closed session.
var ErrClosed = errors.New("session is closed")

// Session manages one unit of agent work. The root is fixed at creation and
// never reassigned; a different root means a different session.
type Session struct {
	ID    string
	Root  string
	guard *fsguard.Guard

	mu                 sync.RWMutex
	filesRead          map[string]time.Time
	filesModified      map[string]time.Time
	authorizedCommands []string
	box                *sandbox.Instance
	boxFactory         func(*Session) *sandbox.Instance
	createdAt          time.Time

	// queue serializes tool execution for this session. One goroutine drains
	// it; concurrent callers of Do observe strict submission order.
	queue  chan func()
	done   chan struct{}
	closed bool
}

// New creates a session rooted at root. The sandbox factory is invoked
// lazily on first script execution so sessions that never run scripts pay
// nothing.
func New(root string, boxFactory func(*Session) *sandbox.Instance) (*Session, error) {
	guard, err := fsguard.New(root)
	if err != nil {
		return nil, err
	}
	s := &Session{
		ID:            uuid.NewString(),
		Root:          guard.Root(),
		guard:         guard,
		filesRead:     make(map[string]time.Time),
		filesModified: make(map[string]time.Time),
		boxFactory:    boxFactory,
		createdAt:     time.Now(),
		queue:         make(chan func(), 64),
		done:          make(chan struct{}),
	}
	go s.drain()
	return s, nil
}

func (s *Session) drain() {
	for {
		select {
		case fn := <-s.queue:
			fn()
		case <-s.done:
			return
		}
	}
}

// Guard returns the I/O guard bound to this session's root.
func (s *Session) Guard() *fsguard.Guard { return s.guard }

// Do runs fn on the session's executor goroutine and waits for it. Calls are
// strictly serialized per session; sessions never share interpreter or
// ledger state, so cross-session calls run freely in parallel. If ctx
// expires while fn is queued or running, Do returns ctx.Err() and the
// caller must treat the outcome as unknown.
func (s *Session) Do(ctx context.Context, fn func()) error {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	finished := make(chan struct{})
	job := func() {
		defer close(finished)
		fn()
	}
	select {
	case s.queue <- job:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrClosed
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrackRead records that path was read in this session. Entries are never
// pruned while the session lives: a read stays valid for the session's whole
// lifetime.
func (s *Session) TrackRead(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filesRead[path] = time.Now()
}

// WasRead reports whether path was read in this session.
func (s *Session) WasRead(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.filesRead[path]
	return ok
}

// TrackWrite records that path was modified in this session. A write also
// counts as knowledge of the file, so a session may rewrite a file it just
// created without an intervening read.
func (s *Session) TrackWrite(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.filesModified[path] = now
	s.filesRead[path] = now
}

// EnsureWritable enforces the read-before-write rule for path. exists tells
// whether the file is already present on disk; new files are always
// writable. Reads performed by other sessions never satisfy the rule.
func (s *Session) EnsureWritable(path string, exists bool) error {
	if !exists {
		return nil
	}
	if !s.WasRead(path) {
		return ErrReadBeforeWriteRequired
	}
	return nil
}

// AuthorizeCommand adds a command prefix to the authorized list for this session
func (s *Session) AuthorizeCommand(commandPrefix string) {
	commandPrefix = strings.TrimSpace(commandPrefix)
	if commandPrefix == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.authorizedCommands {
		if existing == commandPrefix {
			return
		}
	}
	s.authorizedCommands = append(s.authorizedCommands, commandPrefix)
}

// IsCommandAuthorized checks if a command is authorized based on session-level authorized prefixes
func (s *Session) IsCommandAuthorized(command string) bool {
	command = strings.TrimSpace(command)
	if command == "" {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, prefix := range s.authorizedCommands {
		if strings.HasPrefix(command, prefix) {
			return true
		}
	}
	return false
}

// AuthorizedCommands returns a copy of the authorized command prefixes.
func (s *Session) AuthorizedCommands() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.authorizedCommands))
	copy(out, s.authorizedCommands)
	return out
}

// Sandbox returns the session's interpreter instance, creating it on first
// use. The instance is private to the session; the executor goroutine is the
// only caller once tools flow through Do.
func (s *Session) Sandbox() *sandbox.Instance {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.box == nil && s.boxFactory != nil {
		s.box = s.boxFactory(s)
	}
	return s.box
}

// Close stops the executor and destroys the interpreter state.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	box := s.box
	s.box = nil
	s.mu.Unlock()

	close(s.done)
	if box != nil {
		box.Close()
	}
}
