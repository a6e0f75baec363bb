package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileRecorder_AppendAndLoad(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "turns.jsonl")
	rec, err := NewFileRecorder(p)
	if err != nil {
		t.Fatalf("init recorder: %v", err)
	}

	ev1 := Event{Timestamp: time.Unix(1, 0).UTC(), TurnID: "a", Username: "alice", Kind: "search", Status: "committed", Query: "laptop", Results: 1}
	ev2 := Event{Timestamp: time.Unix(2, 0).UTC(), TurnID: "b", Username: "bob", Kind: "purchase", Status: "rolled_back", ProductID: 7}
	if err := rec.AppendEvent(ev1); err != nil {
		t.Fatalf("append1: %v", err)
	}
	if err := rec.AppendEvent(ev2); err != nil {
		t.Fatalf("append2: %v", err)
	}

	events, err := rec.LoadEvents()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("want 2, got %d", len(events))
	}
	if events[0].TurnID != "a" || events[1].ProductID != 7 {
		t.Fatalf("order mismatch: %+v", events)
	}
	if !events[0].Timestamp.Equal(ev1.Timestamp) {
		t.Fatalf("timestamp mismatch: %v", events[0].Timestamp)
	}

	// ensure file exists and non-empty
	st, err := os.Stat(p)
	if err != nil || st.Size() == 0 {
		t.Fatalf("file not written")
	}
}

func TestFileRecorder_SkipsGarbageLines(t *testing.T) {
	p := filepath.Join(t.TempDir(), "turns.jsonl")
	if err := os.WriteFile(p, []byte("garbage\n\n{\"turn_id\":\"x\",\"kind\":\"search\"}\n"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	rec, err := NewFileRecorder(p)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	events, err := rec.LoadEvents()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(events) != 1 || events[0].TurnID != "x" {
		t.Fatalf("unexpected events %+v", events)
	}
}

func TestFileRecorder_MissingFileHoldsNoEvents(t *testing.T) {
	p := filepath.Join(t.TempDir(), "turns.jsonl")
	rec, err := NewFileRecorder(p)
	if err != nil {
		t.Fatalf("init recorder: %v", err)
	}
	if err := os.Remove(p); err != nil {
		t.Fatal(err)
	}

	events, err := rec.LoadEvents()
	if err != nil || len(events) != 0 {
		t.Fatalf("expected no events, got %v %v", events, err)
	}
	if err := rec.AppendEvent(Event{TurnID: "a", Kind: "search", Status: "committed"}); err != nil {
		t.Fatalf("append after rotation: %v", err)
	}
	if events, _ := rec.LoadEvents(); len(events) != 1 || events[0].TurnID != "a" {
		t.Fatalf("unexpected events: %+v", events)
	}
}
