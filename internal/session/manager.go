package session

import (
	"errors"
	"sync"

	"github.com/codefionn/toolguard/internal/audit"
	"github.com/codefionn/toolguard/internal/boundary"
	"github.com/codefionn/toolguard/internal/logger"
	"github.com/codefionn/toolguard/internal/sandbox"
)

// ErrSessionNotFound is returned when a session id does not name a live
// session and no fallback root applies.
var ErrSessionNotFound = errors.New("session not found")

// Manager owns the live session set and resolves the effective project root
// for incoming tool calls.
type Manager struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	defaultRoot string
	boxFactory  func(*Session) *sandbox.Instance
	trail       *audit.Trail
}

// NewManager creates a Manager. defaultRoot may be empty; when set it serves
// only the deprecated no-session fallback path.
func NewManager(defaultRoot string, boxFactory func(*Session) *sandbox.Instance, trail *audit.Trail) *Manager {
	if trail == nil {
		trail = audit.Discard()
	}
	return &Manager{
		sessions:    make(map[string]*Session),
		defaultRoot: defaultRoot,
		boxFactory:  boxFactory,
		trail:       trail,
	}
}

// Open creates a new session rooted at root and registers it.
func (m *Manager) Open(root string) (*Session, error) {
	s, err := New(root, m.boxFactory)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	m.trail.Log(audit.Event{Type: audit.EventSessionOpened, Session: s.ID, Success: true})
	logger.Info("session %s opened", s.ID)
	return s, nil
}

// Get returns a live session by id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Close tears down a session and removes it from the live set.
func (m *Manager) Close(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.Close()
		m.trail.Log(audit.Event{Type: audit.EventSessionClosed, Session: id, Success: true})
		logger.Info("session %s closed", id)
	}
}

// CloseAll tears down every live session.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for id, s := range sessions {
		s.Close()
		m.trail.Log(audit.Event{Type: audit.EventSessionClosed, Session: id, Success: true})
	}
}

// ResolveRoot determines the effective project root for a tool call.
// Resolution order: session id, then a directly supplied root, then the
// configured default root. The default path is deprecated and logged on
// every use; with no source available the call fails rather than guessing.
func (m *Manager) ResolveRoot(sessionID, directRoot string) (string, *Session, error) {
	if sessionID != "" {
		if s, ok := m.Get(sessionID); ok {
			return s.Root, s, nil
		}
		return "", nil, ErrSessionNotFound
	}
	if directRoot != "" {
		normRoot, err := boundary.NormalizeRoot(directRoot)
		if err != nil {
			return "", nil, err
		}
		return normRoot, nil, nil
	}
	if m.defaultRoot != "" {
		logger.Warn("tool call resolved through deprecated default root; callers should open a session")
		normRoot, err := boundary.NormalizeRoot(m.defaultRoot)
		if err != nil {
			return "", nil, err
		}
		return normRoot, nil, nil
	}
	return "", nil, ErrSessionNotFound
}
