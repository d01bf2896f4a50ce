package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/wildanal2/ocr-ecosteps/constants"
	"github.com/wildanal2/ocr-ecosteps/internal/delivery"
	"github.com/wildanal2/ocr-ecosteps/internal/history"
	"github.com/wildanal2/ocr-ecosteps/internal/pipeline"
)

// Processor runs the per-job recognition pipeline.
type Processor interface {
	Process(ctx context.Context, source, categoryHint string) (pipeline.Outcome, error)
}

// Sender posts the finished result to the environment's webhook.
type Sender interface {
	Send(ctx context.Context, env constants.Environment, rep delivery.Report) error
}

// Archiver records a completed job. May be nil-backed in tests.
type Archiver interface {
	Record(ctx context.Context, e history.Entry) error
}

// Pool is the fixed set of workers draining the queue. Faults in one
// job's processing are contained in that worker iteration.
type Pool struct {
	svc     *Service
	proc    Processor
	sender  Sender
	archive Archiver
	logger  *slog.Logger
	timeout time.Duration

	wg     sync.WaitGroup
	once   sync.Once
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

func NewPool(svc *Service, proc Processor, sender Sender, archive Archiver, timeout time.Duration, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}
	return &Pool{
		svc:     svc,
		proc:    proc,
		sender:  sender,
		archive: archive,
		logger:  logger,
		timeout: timeout,
	}
}

// Start launches all workers. Safe to call once; subsequent calls no-op.
func (p *Pool) Start() {
	p.once.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		p.cancel = cancel

		for i := 0; i < p.svc.workers; i++ {
			p.wg.Add(1)
			go func(workerID int) {
				defer p.wg.Done()
				p.logger.Info("worker started", "worker_id", workerID)

				for {
					job, ok := p.svc.dequeue(ctx)
					if !ok {
						break
					}
					p.runJob(ctx, workerID, job)
				}

				p.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
		p.logger.Info("worker pool started", "workers", p.svc.workers)
	})
}

// runJob processes one job end to end: process, deliver best-effort,
// archive, deregister exactly once. Nothing here may escape to kill the
// worker loop.
func (p *Pool) runJob(ctx context.Context, workerID int, job *Job) {
	succeeded := false
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("worker recovered from panic",
				"worker_id", workerID, "report_id", job.ReportID, "panic", r)
			succeeded = false
		}
		p.svc.complete(job, succeeded)
	}()

	jctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	p.logger.Info("processing report",
		"worker_id", workerID, "report_id", job.ReportID, "trace_id", job.TraceID)

	out, err := p.proc.Process(jctx, job.ImageSource, "")
	if err != nil {
		p.logger.Error("report processing failed",
			"worker_id", workerID, "report_id", job.ReportID, "trace_id", job.TraceID, "error", err)
		p.record(ctx, job, out, constants.JobStatusFailed)
		return
	}
	succeeded = true

	rep := delivery.Report{
		ReportID:         job.ReportID,
		UserID:           job.UserID,
		ImgURL:           job.ImageSource,
		RawOCR:           out.RawText,
		ExtractedData:    out.Data.Map(),
		AppClass:         string(out.AppClass),
		ProcessingTimeMS: out.Duration.Milliseconds(),
	}
	if err := p.sender.Send(jctx, job.Environment, rep); err != nil {
		// At-most-once best-effort: the job is complete either way.
		p.logger.Warn("result delivery failed",
			"worker_id", workerID, "report_id", job.ReportID, "trace_id", job.TraceID, "error", err)
	}

	p.record(ctx, job, out, constants.JobStatusCompleted)
	p.logger.Info("completed report",
		"worker_id", workerID, "report_id", job.ReportID, "trace_id", job.TraceID,
		"app_class", string(out.AppClass))
}

func (p *Pool) record(ctx context.Context, job *Job, out pipeline.Outcome, status constants.JobStatus) {
	if p.archive == nil {
		return
	}
	e := history.Entry{
		ReportID:     job.ReportID,
		UserID:       job.UserID,
		AppClass:     string(out.AppClass),
		Status:       string(status),
		ProcessingMS: out.Duration.Milliseconds(),
		FinishedAt:   time.Now().UTC(),
	}
	if out.Data.Steps != nil {
		e.Steps = out.Data.Steps
	}
	if err := p.archive.Record(ctx, e); err != nil {
		p.logger.Warn("archive record failed", "report_id", job.ReportID, "error", err)
	}
}

// Shutdown signals all workers to stop and waits for in-flight jobs,
// bounded by ctx.
func (p *Pool) Shutdown(ctx context.Context) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() { defer close(done); p.wg.Wait() }()

	select {
	case <-ctx.Done():
		p.logger.Warn("shutdown interrupted by context")
	case <-done:
		p.logger.Info("worker pool drained, shutdown complete")
	}
}
