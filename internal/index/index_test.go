package index

import (
	"path/filepath"
	"testing"
	"time"
)

func open(t *testing.T) *Index {
	t.Helper()
	ix, err := Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { ix.Close() })
	return ix
}

func TestRecordAndSession(t *testing.T) {
	ix := open(t)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, e := range []Extraction{
		{SessionID: "s1", Extractor: "rp", Tuples: 4, Events: 100, OutputPath: "/out/rp/s1.jsonl.gz", ProcessedAt: at},
		{SessionID: "s1", Extractor: "narration", Tuples: 2, Events: 100, OutputPath: "/out/narration/s1.jsonl.gz", ProcessedAt: at},
		{SessionID: "s2", Extractor: "rp", Tuples: 1, Events: 30, OutputPath: "/out/rp/s2.jsonl.gz", ProcessedAt: at},
	} {
		if err := ix.Record(e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	got, err := ix.Session("s1")
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 extractions for s1, got %d", len(got))
	}
	// Ordered by extractor name.
	if got[0].Extractor != "narration" || got[1].Extractor != "rp" {
		t.Errorf("unexpected extractor order: %s, %s", got[0].Extractor, got[1].Extractor)
	}
	if got[1].Tuples != 4 || got[1].Events != 100 {
		t.Errorf("rp row: expected 4 tuples over 100 events, got %d over %d", got[1].Tuples, got[1].Events)
	}
	if !got[0].ProcessedAt.Equal(at) {
		t.Errorf("processed_at: expected %v, got %v", at, got[0].ProcessedAt)
	}
}

func TestRecord_ReplacesExisting(t *testing.T) {
	ix := open(t)

	if err := ix.Record(Extraction{SessionID: "s1", Extractor: "rp", Tuples: 4}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := ix.Record(Extraction{SessionID: "s1", Extractor: "rp", Tuples: 7}); err != nil {
		t.Fatalf("Record replace: %v", err)
	}

	got, err := ix.Session("s1")
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 row after replace, got %d", len(got))
	}
	if got[0].Tuples != 7 {
		t.Errorf("expected replaced tuple count 7, got %d", got[0].Tuples)
	}
}

func TestTotals(t *testing.T) {
	ix := open(t)

	for _, e := range []Extraction{
		{SessionID: "s1", Extractor: "rp", Tuples: 4},
		{SessionID: "s2", Extractor: "rp", Tuples: 3},
		{SessionID: "s2", Extractor: "tagged", Tuples: 5},
	} {
		if err := ix.Record(e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	sessions, tuples, err := ix.Totals()
	if err != nil {
		t.Fatalf("Totals: %v", err)
	}
	if sessions != 2 {
		t.Errorf("sessions: expected 2, got %d", sessions)
	}
	if tuples["rp"] != 7 {
		t.Errorf("rp tuples: expected 7, got %d", tuples["rp"])
	}
	if tuples["tagged"] != 5 {
		t.Errorf("tagged tuples: expected 5, got %d", tuples["tagged"])
	}
}

func TestSession_EmptyForUnknown(t *testing.T) {
	ix := open(t)
	got, err := ix.Session("nope")
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no rows, got %d", len(got))
	}
}
