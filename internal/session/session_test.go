package session

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	s, err := New(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestReadBeforeWriteExistingFile(t *testing.T) {
	s := newTestSession(t)
	path := filepath.Join(s.Root, "existing.txt")

	if err := s.EnsureWritable(path, true); !errors.Is(err, ErrReadBeforeWriteRequired) {
		t.Fatalf("unread existing file must be refused, got %v", err)
	}

	s.TrackRead(path)
	if err := s.EnsureWritable(path, true); err != nil {
		t.Fatalf("read file must be writable: %v", err)
	}
}

func TestNewFileAlwaysWritable(t *testing.T) {
	s := newTestSession(t)
	path := filepath.Join(s.Root, "brand-new.txt")

	if err := s.EnsureWritable(path, false); err != nil {
		t.Fatalf("new file must be writable without a read: %v", err)
	}
}

func TestWriteCountsAsKnowledge(t *testing.T) {
	// A session may rewrite a file it just created without re-reading it.
	s := newTestSession(t)
	path := filepath.Join(s.Root, "created.txt")

	s.TrackWrite(path)
	if err := s.EnsureWritable(path, true); err != nil {
		t.Fatalf("own write must satisfy the rule: %v", err)
	}
}

func TestReadsDoNotCrossSessions(t *testing.T) {
	root := t.TempDir()
	a, err := New(root, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	b, err := New(root, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	path := filepath.Join(root, "shared.txt")
	a.TrackRead(path)

	if err := b.EnsureWritable(path, true); !errors.Is(err, ErrReadBeforeWriteRequired) {
		t.Fatalf("another session's read must not satisfy the rule, got %v", err)
	}
}

func TestLedgerNeverPruned(t *testing.T) {
	s := newTestSession(t)
	path := filepath.Join(s.Root, "old-read.txt")
	s.TrackRead(path)

	if !s.WasRead(path) {
		t.Fatal("read lost")
	}
	// Still valid later in the session regardless of elapsed time.
	if err := s.EnsureWritable(path, true); err != nil {
		t.Fatalf("old read must stay valid: %v", err)
	}
}

func TestDoSerializesWork(t *testing.T) {
	s := newTestSession(t)

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		i := i
		go func() {
			defer wg.Done()
			_ = s.Do(context.Background(), func() {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				time.Sleep(time.Millisecond)
			})
		}()
	}
	wg.Wait()

	if len(order) != 8 {
		t.Fatalf("ran %d jobs, want 8", len(order))
	}
}

func TestDoAfterClose(t *testing.T) {
	s, err := New(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	s.Close()

	if err := s.Do(context.Background(), func() {}); !errors.Is(err, ErrClosed) {
		t.Fatalf("got %v, want ErrClosed", err)
	}
}

func TestDoContextExpiry(t *testing.T) {
	s := newTestSession(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	blocker := make(chan struct{})
	// Occupy the executor so the next job queues.
	go func() {
		_ = s.Do(context.Background(), func() { <-blocker })
	}()
	time.Sleep(10 * time.Millisecond)

	err := s.Do(ctx, func() {})
	close(blocker)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}

func TestAuthorizedCommandPrefixes(t *testing.T) {
	s := newTestSession(t)

	s.AuthorizeCommand("go test")
	if !s.IsCommandAuthorized("go test ./...") {
		t.Error("prefix match failed")
	}
	if s.IsCommandAuthorized("go build") {
		t.Error("non-matching command authorized")
	}
	if s.IsCommandAuthorized("") {
		t.Error("empty command authorized")
	}
}

func TestManagerResolveRootPrecedence(t *testing.T) {
	m := NewManager("", nil, nil)
	s, err := m.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer m.CloseAll()

	// Session id wins.
	root, resolved, err := m.ResolveRoot(s.ID, "/somewhere/else")
	if err != nil {
		t.Fatal(err)
	}
	if root != s.Root || resolved != s {
		t.Errorf("session resolution failed: %q", root)
	}

	// Unknown session id fails even with a direct root present.
	if _, _, err := m.ResolveRoot("nope", "/somewhere"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("got %v, want ErrSessionNotFound", err)
	}

	// Direct root without session.
	direct := t.TempDir()
	root, resolved, err = m.ResolveRoot("", direct)
	if err != nil {
		t.Fatal(err)
	}
	if root != direct || resolved != nil {
		t.Errorf("direct resolution failed: %q", root)
	}

	// No source at all.
	if _, _, err := m.ResolveRoot("", ""); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("got %v, want ErrSessionNotFound", err)
	}
}

func TestManagerDefaultRootFallback(t *testing.T) {
	fallback := t.TempDir()
	m := NewManager(fallback, nil, nil)

	root, s, err := m.ResolveRoot("", "")
	if err != nil {
		t.Fatal(err)
	}
	if root != fallback || s != nil {
		t.Errorf("fallback resolution failed: %q", root)
	}
}

func TestManagerCloseRemovesSession(t *testing.T) {
	m := NewManager("", nil, nil)
	s, err := m.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	m.Close(s.ID)

	if _, ok := m.Get(s.ID); ok {
		t.Error("session still registered after close")
	}
	if _, _, err := m.ResolveRoot(s.ID, ""); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("got %v, want ErrSessionNotFound", err)
	}
}
