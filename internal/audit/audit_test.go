package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestTrailWritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	trail, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	trail.Log(Event{
		Type:      EventPathViolation,
		Session:   "s1",
		Tool:      "read_file",
		Candidate: "../etc/passwd",
		Reason:    "escapes_boundary",
	})
	trail.Log(Event{Type: EventSessionOpened, Session: "s1", Success: true})
	if err := trail.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()

	var events []Event
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var e Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("line not valid JSON: %v", err)
		}
		events = append(events, e)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Type != EventPathViolation || events[0].Candidate != "../etc/passwd" {
		t.Errorf("first event = %+v", events[0])
	}
	if events[0].Timestamp.IsZero() {
		t.Error("timestamp not filled in")
	}
}

func TestTrailAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")

	first, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	first.Log(Event{Type: EventCommandRun, Success: true})
	first.Close()

	second, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	second.Log(Event{Type: EventCommandRun, Success: true})
	second.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := 0
	for _, b := range data {
		if b == '\n' {
			lines++
		}
	}
	if lines != 2 {
		t.Errorf("got %d lines, want 2", lines)
	}
}

func TestDiscardNeverFails(t *testing.T) {
	trail := Discard()
	trail.Log(Event{Type: EventToolInvoked})
	if err := trail.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// Logging after close is a no-op, not a crash.
	trail.Log(Event{Type: EventToolInvoked})
}
