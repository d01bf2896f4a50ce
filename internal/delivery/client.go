// Package delivery posts completed job results to the configured webhook.
// Delivery is at-most-once and best-effort: failures are logged and the
// job is still considered complete.
package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/wildanal2/ocr-ecosteps/constants"
	"github.com/wildanal2/ocr-ecosteps/internal/common"
)

// Report is the outbound result payload.
type Report struct {
	ReportID         string         `json:"report_id"`
	UserID           string         `json:"user_id"`
	ImgURL           string         `json:"img_url"`
	RawOCR           string         `json:"raw_ocr"`
	ExtractedData    map[string]any `json:"extracted_data"`
	AppClass         string         `json:"app_class"`
	ProcessingTimeMS int64          `json:"processing_time_ms"`
}

// Endpoint is one environment's destination.
type Endpoint struct {
	URL    string
	APIKey string
}

// Config maps environments onto endpoints, with a shared default used
// wherever an environment-specific value is absent.
type Config struct {
	Default    Endpoint
	Staging    Endpoint
	Production Endpoint
	Timeout    time.Duration
}

// Client sends result payloads. It is safe for concurrent use.
type Client struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// resolve picks the endpoint for an environment, falling back field by
// field to the shared default.
func (c *Client) resolve(env constants.Environment) Endpoint {
	var ep Endpoint
	switch env {
	case constants.EnvProduction:
		ep = c.cfg.Production
	default:
		ep = c.cfg.Staging
	}
	if ep.URL == "" {
		ep.URL = c.cfg.Default.URL
	}
	if ep.APIKey == "" {
		ep.APIKey = c.cfg.Default.APIKey
	}
	return ep
}

// Send posts one report to the environment's webhook. The returned error
// wraps ErrDelivery; callers log it and move on, they never retry.
func (c *Client) Send(ctx context.Context, env constants.Environment, rep Report) error {
	ep := c.resolve(env)
	if ep.URL == "" {
		return fmt.Errorf("%w: no endpoint configured for %s", common.ErrDelivery, env)
	}

	start := time.Now()

	bs, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("%w: encode payload: %v", common.ErrDelivery, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL, bytes.NewReader(bs))
	if err != nil {
		return fmt.Errorf("%w: build request: %v", common.ErrDelivery, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if ep.APIKey != "" {
		req.Header.Set("x-api-key", ep.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("delivery send failed",
			"report_id", rep.ReportID,
			"env", string(env),
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return fmt.Errorf("%w: %v", common.ErrDelivery, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	c.logger.Info("delivery response",
		"report_id", rep.ReportID,
		"env", string(env),
		"status", resp.StatusCode,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%w: non-2xx status %d", common.ErrDelivery, resp.StatusCode)
	}
	return nil
}
