// Package queue owns the ingestion side of the pipeline: the deduplicating
// task registry, the capacity-bounded FIFO queue, the worker pool and the
// processed/failed counters.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/wildanal2/ocr-ecosteps/internal/common"
)

// Service is the submission gate plus the shared bookkeeping it guards.
// Construct one per process (or per test); there is no package-level
// singleton. All registry mutation happens under mu: the dedup check on
// submit and the removal on completion must never interleave.
type Service struct {
	logger   *slog.Logger
	capacity int
	workers  int

	ch chan *Job

	mu       sync.Mutex
	registry map[string]*Job
	order    []string // registry insertion order, for the status preview

	processed atomic.Int64
	failed    atomic.Int64

	startedAt time.Time
}

func NewService(capacity, workers int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if capacity <= 0 {
		capacity = 1000
	}
	if workers <= 0 {
		workers = 3
	}
	return &Service{
		logger:    logger,
		capacity:  capacity,
		workers:   workers,
		ch:        make(chan *Job, capacity),
		registry:  make(map[string]*Job),
		startedAt: time.Now(),
	}
}

// Submit validates and registers a job, then enqueues it. A job whose
// report id is already registered is not enqueued again: its image source
// is updated in place and duplicate=true is returned. A full queue rolls
// the registration back and returns ErrQueueFull.
func (s *Service) Submit(_ context.Context, job Job) (duplicate bool, err error) {
	job.ReportID = strings.TrimSpace(job.ReportID)
	if job.ReportID == "" || strings.TrimSpace(job.UserID) == "" {
		return false, fmt.Errorf("%w: report_id and user_id are required", common.ErrValidation)
	}
	if strings.TrimSpace(job.ImageSource) == "" {
		return false, fmt.Errorf("%w: image source is required", common.ErrValidation)
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	if job.TraceID == "" {
		job.TraceID = uuid.New().String()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.registry[job.ReportID]; ok {
		existing.ImageSource = job.ImageSource
		s.logger.Info("report already in queue, updated image source",
			"report_id", job.ReportID, "trace_id", existing.TraceID)
		return true, nil
	}

	accepted := job
	s.registry[job.ReportID] = &accepted
	s.order = append(s.order, job.ReportID)

	select {
	case s.ch <- &accepted:
		s.logger.Info("report queued",
			"report_id", job.ReportID,
			"user_id", job.UserID,
			"env", string(job.Environment),
			"trace_id", accepted.TraceID,
		)
		return false, nil
	default:
		// Registry membership means "will be processed"; an unqueued
		// entry must not linger.
		s.removeLocked(job.ReportID)
		s.logger.Warn("queue full, rejecting report", "report_id", job.ReportID)
		return false, common.ErrQueueFull
	}
}

// dequeue blocks until a job is available or ctx is done. Each queued job
// is delivered to exactly one worker. The worker gets a copy taken under
// mu: Submit mutates queued jobs through the registry pointer, so the
// shared value must never be read outside the lock.
func (s *Service) dequeue(ctx context.Context) (*Job, bool) {
	select {
	case <-ctx.Done():
		return nil, false
	case job, ok := <-s.ch:
		if !ok {
			return nil, false
		}
		s.mu.Lock()
		snapshot := *job
		s.mu.Unlock()
		return &snapshot, true
	}
}

// complete removes a finished job from the registry, exactly once per
// job, and bumps the matching counter.
func (s *Service) complete(job *Job, succeeded bool) {
	s.mu.Lock()
	before := len(s.registry)
	s.removeLocked(job.ReportID)
	after := len(s.registry)
	s.mu.Unlock()

	if succeeded {
		s.processed.Add(1)
	} else {
		s.failed.Add(1)
	}

	s.logger.Info("report removed from registry",
		"report_id", job.ReportID,
		"trace_id", job.TraceID,
		"registry_before", before,
		"registry_after", after,
	)
}

func (s *Service) removeLocked(reportID string) {
	delete(s.registry, reportID)
	for i, id := range s.order {
		if id == reportID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Clear drains all queued (not in-flight) jobs and their registry
// entries, returning how many were dropped. Admin operation.
func (s *Service) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cleared := 0
	for {
		select {
		case job := <-s.ch:
			s.removeLocked(job.ReportID)
			cleared++
		default:
			s.logger.Info("queue cleared", "removed", cleared)
			return cleared
		}
	}
}

// Snapshot is the read-only status view. It never mutates pipeline state.
type Snapshot struct {
	QueueDepth int       `json:"waiting_in_queue"`
	Registered int       `json:"total_reports_tracked"`
	InFlight   int       `json:"currently_processing"`
	Capacity   int       `json:"queue_capacity"`
	Workers    int       `json:"total_workers"`
	Processed  int64     `json:"processed_count"`
	Failed     int64     `json:"failed_count"`
	Preview    []Summary `json:"reports_in_queue"`
	StartedAt  time.Time `json:"-"`
}

const previewLimit = 5

func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	registered := len(s.registry)
	preview := make([]Summary, 0, previewLimit)
	for _, id := range s.order {
		if len(preview) == previewLimit {
			break
		}
		if job, ok := s.registry[id]; ok {
			preview = append(preview, Summary{
				ReportID: job.ReportID,
				UserID:   job.UserID,
				ImgURL:   job.ImageSource,
			})
		}
	}
	s.mu.Unlock()

	depth := len(s.ch)
	inFlight := registered - depth
	if inFlight < 0 {
		inFlight = 0
	}

	return Snapshot{
		QueueDepth: depth,
		Registered: registered,
		InFlight:   inFlight,
		Capacity:   s.capacity,
		Workers:    s.workers,
		Processed:  s.processed.Load(),
		Failed:     s.failed.Load(),
		Preview:    preview,
		StartedAt:  s.startedAt,
	}
}
