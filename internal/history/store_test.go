package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "archive", "history.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecordAndRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	steps := 7492
	entries := []Entry{
		{ReportID: "r1", UserID: "u1", AppClass: "Samsung Health", Steps: &steps, Status: "COMPLETED", ProcessingMS: 1834},
		{ReportID: "r2", UserID: "u2", AppClass: "Apple Health", Status: "FAILED", ProcessingMS: 311},
		{ReportID: "r3", UserID: "u1", AppClass: "Google Fit", Steps: &steps, Status: "COMPLETED", ProcessingMS: 902},
	}
	for _, e := range entries {
		if err := s.Record(ctx, e); err != nil {
			t.Fatalf("Record %s: %v", e.ReportID, err)
		}
	}

	got, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Recent = %d entries, want 2", len(got))
	}
	// Newest first.
	if got[0].ReportID != "r3" || got[1].ReportID != "r2" {
		t.Errorf("order = %s, %s; want r3, r2", got[0].ReportID, got[1].ReportID)
	}
	if got[0].Steps == nil || *got[0].Steps != 7492 {
		t.Errorf("r3 steps = %v, want 7492", got[0].Steps)
	}
	// A failed job archives without steps.
	if got[1].Steps != nil {
		t.Errorf("r2 steps = %v, want nil", *got[1].Steps)
	}
	if got[0].FinishedAt.IsZero() {
		t.Error("finished_at not populated")
	}
}

func TestCounts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i, status := range []string{"COMPLETED", "COMPLETED", "FAILED"} {
		e := Entry{ReportID: "r" + string(rune('a'+i)), UserID: "u1", AppClass: "Other", Status: status}
		if err := s.Record(ctx, e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	completed, failed, err := s.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if completed != 2 || failed != 1 {
		t.Errorf("counts = %d/%d, want 2/1", completed, failed)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := s1.Record(context.Background(), Entry{ReportID: "r1", UserID: "u1", Status: "COMPLETED", FinishedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Reopening an existing archive passes the version check and keeps rows.
	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer func() { _ = s2.Close() }()

	got, err := s2.Recent(context.Background(), 5)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 1 || got[0].ReportID != "r1" {
		t.Errorf("entries after reopen = %+v, want r1", got)
	}
}
