// Package server exposes the HTTP boundary: submission, direct/local
// processing, status and admin routes. Everything behind it is the
// pipeline core; handlers only translate.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/wildanal2/ocr-ecosteps/constants"
	"github.com/wildanal2/ocr-ecosteps/internal/common"
	"github.com/wildanal2/ocr-ecosteps/internal/history"
	"github.com/wildanal2/ocr-ecosteps/internal/pipeline"
	"github.com/wildanal2/ocr-ecosteps/internal/queue"
)

const (
	serviceName = "ocr-ecosteps"
	appName     = "OCR EcoSteps API"
	appVersion  = "1.0.3"
)

// Server wires the HTTP routes onto the pipeline.
type Server struct {
	svc    *queue.Service
	proc   *pipeline.Processor
	hist   *history.Store // may be nil (archive disabled)
	logger *slog.Logger
	apiKey string
}

func New(svc *queue.Service, proc *pipeline.Processor, hist *history.Store, apiKey string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{svc: svc, proc: proc, hist: hist, logger: logger, apiKey: apiKey}
}

// Register attaches all routes to e.
func (s *Server) Register(e *echo.Echo) {
	e.GET("/", s.root)
	e.GET("/health", s.health)
	e.GET("/status", s.status)
	e.GET("/app-status", s.appStatus)

	guarded := e.Group("", s.requireAPIKey)
	guarded.POST("/api/v1/ocr-ecosteps", s.submit)
	guarded.POST("/api/v1/ocr-ecosteps/dev", s.processDev)
	guarded.POST("/api/v1/ocr-ecosteps/local", s.processLocal)
	guarded.POST("/admin/clear-queue", s.clearQueue)
}

// requireAPIKey rejects requests without the configured x-api-key. An
// empty configured key disables the check (local development).
func (s *Server) requireAPIKey(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.apiKey != "" && c.Request().Header.Get("x-api-key") != s.apiKey {
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error": "invalid or missing API key",
			})
		}
		return next(c)
	}
}

func (s *Server) root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"message": appName,
		"version": appVersion,
	})
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"service":   serviceName,
	})
}

func (s *Server) status(c echo.Context) error {
	snap := s.svc.Snapshot()
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "running",
		"uptime":  formatUptime(time.Since(snap.StartedAt)),
		"version": appVersion,
	})
}

// appStatus is the comprehensive operator view: queue, workers, counters,
// recent archive entries.
func (s *Server) appStatus(c echo.Context) error {
	snap := s.svc.Snapshot()

	busy := snap.InFlight
	if busy > snap.Workers {
		busy = snap.Workers
	}

	resp := map[string]any{
		"service":   appName,
		"version":   appVersion,
		"uptime":    formatUptime(time.Since(snap.StartedAt)),
		"timestamp": time.Now().Format(time.RFC3339),
		"queue": map[string]any{
			"waiting_in_queue":      snap.QueueDepth,
			"total_reports_tracked": snap.Registered,
			"currently_processing":  snap.InFlight,
			"queue_capacity":        snap.Capacity,
			"reports_in_queue":      snap.Preview,
		},
		"workers": map[string]any{
			"total_workers":   snap.Workers,
			"busy_workers":    busy,
			"idle_workers":    snap.Workers - busy,
			"processing_mode": "concurrent",
		},
		"metrics": map[string]any{
			"processed_count": snap.Processed,
			"failed_count":    snap.Failed,
		},
		"processing": map[string]any{
			"supported_apps": constants.AppClassStrings(),
			"extraction_fields": []string{
				"steps", "date", "distance", "duration", "total_calories",
				"avg_pace", "avg_speed", "avg_cadence", "avg_stride", "avg_heart_rate",
			},
			"image_preprocessing": "grayscale + resize_2x",
		},
	}

	if s.hist != nil {
		if recent, err := s.hist.Recent(c.Request().Context(), 5); err == nil {
			resp["recent_results"] = recentView(recent)
		}
	}

	return c.JSON(http.StatusOK, resp)
}

// flexibleID accepts a JSON string or integer; both are tracked as the
// string form downstream.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexibleID(n.String())
	return nil
}

type submitRequest struct {
	ReportID    flexibleID `json:"report_id"`
	UserID      flexibleID `json:"user_id"`
	S3URL       string     `json:"s3_url"`
	Environment string     `json:"environment"`
}

func (s *Server) submit(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "unreadable body"})
	}
	if err := validateSubmit(body); err != nil {
		s.logger.Error("submission validation failed", "error", err)
		return c.JSON(http.StatusUnprocessableEntity, map[string]any{
			"error":   "Validation Error",
			"message": "Data yang dikirim tidak valid",
			"details": err.Error(),
		})
	}

	var req submitRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid json"})
	}

	job := queue.Job{
		ReportID:    string(req.ReportID),
		UserID:      string(req.UserID),
		ImageSource: req.S3URL,
		Environment: constants.NormalizeEnvironment(req.Environment),
		SubmittedAt: time.Now(),
	}

	duplicate, err := s.svc.Submit(c.Request().Context(), job)
	switch {
	case errors.Is(err, common.ErrQueueFull):
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"error":   "Queue is full",
			"message": "Sistem sedang sibuk. Silakan coba lagi dalam beberapa saat.",
		})
	case err != nil:
		s.logger.Error("submission rejected", "error", err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	case duplicate:
		return c.JSON(http.StatusOK, map[string]string{
			"message": "Laporan Anda telah diterima dan sedang dalam antrean verifikasi.",
		})
	default:
		return c.JSON(http.StatusOK, map[string]string{
			"message": "Laporan Anda telah diterima dan dimasukkan ke dalam antrean verifikasi.",
		})
	}
}

type devRequest struct {
	ImgURL string `json:"img_url"`
}

// processDev runs the pipeline synchronously without the queue, for
// testing and development.
func (s *Server) processDev(c echo.Context) error {
	var req devRequest
	if err := c.Bind(&req); err != nil || req.ImgURL == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "img_url is required"})
	}

	out, err := s.proc.Process(c.Request().Context(), req.ImgURL, "")
	if err != nil {
		s.logger.Error("dev mode processing failed", "img_url", req.ImgURL, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, outcomeView(out))
}

type localRequest struct {
	ImgPath  string `json:"img_path"`
	Category string `json:"category"`
}

// processLocal runs the pipeline on a local file with an optional
// category hint, for research and validation.
func (s *Server) processLocal(c echo.Context) error {
	var req localRequest
	if err := c.Bind(&req); err != nil || req.ImgPath == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "img_path is required"})
	}

	out, err := s.proc.Process(c.Request().Context(), req.ImgPath, req.Category)
	if err != nil {
		s.logger.Error("local mode processing failed", "img_path", req.ImgPath, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	view := outcomeView(out)
	view["file_path"] = req.ImgPath
	return c.JSON(http.StatusOK, view)
}

func (s *Server) clearQueue(c echo.Context) error {
	n := s.svc.Clear()
	s.logger.Info("admin cleared queue", "removed", n)
	return c.JSON(http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Queue cleared. Removed %d items.", n),
	})
}

func outcomeView(out pipeline.Outcome) map[string]any {
	return map[string]any{
		"raw_ocr":            out.RawText,
		"extracted_data":     out.Data.Map(),
		"app_class":          string(out.AppClass),
		"processing_time_ms": out.Duration.Milliseconds(),
	}
}

func recentView(entries []history.Entry) []map[string]any {
	out := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		m := map[string]any{
			"report_id":     e.ReportID,
			"app_class":     e.AppClass,
			"status":        e.Status,
			"processing_ms": e.ProcessingMS,
			"finished_at":   e.FinishedAt.Format(time.RFC3339),
		}
		if e.Steps != nil {
			m["steps"] = *e.Steps
		}
		out = append(out, m)
	}
	return out
}

func formatUptime(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	sec := (d % time.Minute) / time.Second
	return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
}

// Run starts the echo server and blocks until ctx is done, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	s.Register(e)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- e.Start(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	}
}
