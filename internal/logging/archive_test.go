package logging

import (
	"path/filepath"
	"testing"
	"time"
)

func TestEventArchiveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	archive, err := NewEventArchive(path)
	if err != nil {
		t.Fatalf("NewEventArchive returned error: %v", err)
	}
	t.Cleanup(func() { archive.Close() })

	for seq := uint64(1); seq <= 3; seq++ {
		archive.Append(LogEvent{
			Sequence:  seq,
			Timestamp: time.Now().UTC(),
			Level:     "INFO",
			Message:   "archived",
			ItemID:    int64(seq),
		})
	}

	events, highest, err := archive.ReadSince(1, 0)
	if err != nil {
		t.Fatalf("ReadSince returned error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events newer than sequence 1, got %d", len(events))
	}
	if events[0].Sequence != 2 || events[1].Sequence != 3 {
		t.Errorf("unexpected sequences %d, %d", events[0].Sequence, events[1].Sequence)
	}
	if highest != 3 {
		t.Errorf("expected highest sequence 3, got %d", highest)
	}
}

func TestEventArchiveLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	archive, err := NewEventArchive(path)
	if err != nil {
		t.Fatalf("NewEventArchive returned error: %v", err)
	}
	t.Cleanup(func() { archive.Close() })

	for seq := uint64(1); seq <= 5; seq++ {
		archive.Append(LogEvent{Sequence: seq, Message: "archived"})
	}

	events, _, err := archive.ReadSince(0, 2)
	if err != nil {
		t.Fatalf("ReadSince returned error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected limit of 2 events, got %d", len(events))
	}
}

func TestEventArchiveEmptyPathDisabled(t *testing.T) {
	archive, err := NewEventArchive("  ")
	if err != nil {
		t.Fatalf("expected nil error for empty path, got %v", err)
	}
	if archive != nil {
		t.Fatal("expected nil archive for empty path")
	}

	// nil receiver methods must be safe
	archive.Append(LogEvent{Sequence: 1})
	if _, _, err := archive.ReadSince(0, 0); err != nil {
		t.Fatalf("ReadSince on nil archive returned error: %v", err)
	}
	if err := archive.Close(); err != nil {
		t.Fatalf("Close on nil archive returned error: %v", err)
	}
}

func TestEventArchiveTruncatesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")

	first, err := NewEventArchive(path)
	if err != nil {
		t.Fatalf("NewEventArchive returned error: %v", err)
	}
	first.Append(LogEvent{Sequence: 1, Message: "stale"})
	if err := first.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	second, err := NewEventArchive(path)
	if err != nil {
		t.Fatalf("NewEventArchive returned error: %v", err)
	}
	t.Cleanup(func() { second.Close() })

	events, _, err := second.ReadSince(0, 0)
	if err != nil {
		t.Fatalf("ReadSince returned error: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected truncated archive to be empty, got %d events", len(events))
	}
}
