package queue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/wildanal2/ocr-ecosteps/internal/common"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSubmitValidation(t *testing.T) {
	svc := NewService(4, 1, testLogger())
	ctx := context.Background()

	cases := []struct {
		name string
		job  Job
	}{
		{"missing report id", Job{UserID: "u1", ImageSource: "https://x/img.png"}},
		{"missing user id", Job{ReportID: "r1", ImageSource: "https://x/img.png"}},
		{"missing source", Job{ReportID: "r1", UserID: "u1"}},
		{"blank report id", Job{ReportID: "  ", UserID: "u1", ImageSource: "https://x/img.png"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Submit(ctx, tc.job); !errors.Is(err, common.ErrValidation) {
				t.Errorf("Submit = %v, want ErrValidation", err)
			}
		})
	}

	if snap := svc.Snapshot(); snap.Registered != 0 {
		t.Errorf("registered = %d after rejected submits, want 0", snap.Registered)
	}
}

func TestSubmitDeduplicates(t *testing.T) {
	svc := NewService(4, 1, testLogger())
	ctx := context.Background()

	dup, err := svc.Submit(ctx, Job{ReportID: "r1", UserID: "u1", ImageSource: "https://x/a.png"})
	if err != nil || dup {
		t.Fatalf("first submit: dup=%v err=%v", dup, err)
	}

	// Same report id again: not enqueued twice, but the newer source wins.
	dup, err = svc.Submit(ctx, Job{ReportID: "r1", UserID: "u1", ImageSource: "https://x/b.png"})
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if !dup {
		t.Error("second submit not reported as duplicate")
	}

	snap := svc.Snapshot()
	if snap.Registered != 1 {
		t.Errorf("registered = %d, want 1", snap.Registered)
	}
	if snap.QueueDepth != 1 {
		t.Errorf("queue depth = %d, want 1", snap.QueueDepth)
	}
	if len(snap.Preview) != 1 || snap.Preview[0].ImgURL != "https://x/b.png" {
		t.Errorf("preview = %+v, want updated image source", snap.Preview)
	}

	// The enqueued pointer carries the update too.
	job, ok := svc.dequeue(ctx)
	if !ok || job.ImageSource != "https://x/b.png" {
		t.Errorf("dequeued source = %q, want updated b.png", job.ImageSource)
	}
}

func TestSubmitQueueFullRollsBack(t *testing.T) {
	svc := NewService(1, 1, testLogger())
	ctx := context.Background()

	if _, err := svc.Submit(ctx, Job{ReportID: "r1", UserID: "u1", ImageSource: "a"}); err != nil {
		t.Fatalf("first submit: %v", err)
	}

	_, err := svc.Submit(ctx, Job{ReportID: "r2", UserID: "u1", ImageSource: "b"})
	if !errors.Is(err, common.ErrQueueFull) {
		t.Fatalf("second submit = %v, want ErrQueueFull", err)
	}

	// The rejected job must not linger in the registry.
	snap := svc.Snapshot()
	if snap.Registered != 1 {
		t.Errorf("registered = %d after rejection, want 1", snap.Registered)
	}

	// The same id is accepted once room opens.
	job, _ := svc.dequeue(ctx)
	svc.complete(job, true)
	if _, err := svc.Submit(ctx, Job{ReportID: "r2", UserID: "u1", ImageSource: "b"}); err != nil {
		t.Errorf("resubmit after drain: %v", err)
	}
}

func TestDequeueCopiesJob(t *testing.T) {
	svc := NewService(4, 1, testLogger())
	ctx := context.Background()

	if _, err := svc.Submit(ctx, Job{ReportID: "r1", UserID: "u1", ImageSource: "https://x/a.png"}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	job, ok := svc.dequeue(ctx)
	if !ok {
		t.Fatal("dequeue failed")
	}

	// A duplicate arriving after dequeue updates the registry only; the
	// in-flight copy keeps the source it was dequeued with.
	dup, err := svc.Submit(ctx, Job{ReportID: "r1", UserID: "u1", ImageSource: "https://x/b.png"})
	if err != nil || !dup {
		t.Fatalf("duplicate submit: dup=%v err=%v", dup, err)
	}
	if job.ImageSource != "https://x/a.png" {
		t.Errorf("in-flight source = %q, want the dequeued a.png", job.ImageSource)
	}
	if snap := svc.Snapshot(); snap.Preview[0].ImgURL != "https://x/b.png" {
		t.Errorf("registry source = %q, want updated b.png", snap.Preview[0].ImgURL)
	}
}

func TestClearDrainsQueuedJobs(t *testing.T) {
	svc := NewService(8, 1, testLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		id := fmt.Sprintf("r%d", i)
		if _, err := svc.Submit(ctx, Job{ReportID: id, UserID: "u1", ImageSource: "a"}); err != nil {
			t.Fatalf("submit %s: %v", id, err)
		}
	}

	if n := svc.Clear(); n != 3 {
		t.Errorf("Clear = %d, want 3", n)
	}
	snap := svc.Snapshot()
	if snap.Registered != 0 || snap.QueueDepth != 0 {
		t.Errorf("after clear: registered=%d depth=%d, want 0/0", snap.Registered, snap.QueueDepth)
	}
}

func TestSnapshotCountsInFlight(t *testing.T) {
	svc := NewService(8, 2, testLogger())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := svc.Submit(ctx, Job{ReportID: fmt.Sprintf("r%d", i), UserID: "u1", ImageSource: "a"}); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	job, ok := svc.dequeue(ctx)
	if !ok {
		t.Fatal("dequeue failed")
	}

	snap := svc.Snapshot()
	if snap.QueueDepth != 1 || snap.Registered != 2 || snap.InFlight != 1 {
		t.Errorf("depth=%d registered=%d inflight=%d, want 1/2/1",
			snap.QueueDepth, snap.Registered, snap.InFlight)
	}

	svc.complete(job, true)
	snap = svc.Snapshot()
	if snap.Registered != 1 || snap.Processed != 1 || snap.Failed != 0 {
		t.Errorf("after complete: registered=%d processed=%d failed=%d, want 1/1/0",
			snap.Registered, snap.Processed, snap.Failed)
	}
}

func TestSubmitConcurrent(t *testing.T) {
	const n = 64
	svc := NewService(n, 4, testLogger())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Submit(ctx, Job{
				ReportID:    fmt.Sprintf("r%d", i),
				UserID:      "u1",
				ImageSource: "a",
			})
			if err != nil {
				t.Errorf("submit r%d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	snap := svc.Snapshot()
	if snap.Registered != n || snap.QueueDepth != n {
		t.Errorf("registered=%d depth=%d, want %d/%d", snap.Registered, snap.QueueDepth, n, n)
	}
	if len(snap.Preview) != 5 {
		t.Errorf("preview size = %d, want 5", len(snap.Preview))
	}
}
