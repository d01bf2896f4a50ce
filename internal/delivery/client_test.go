package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/wildanal2/ocr-ecosteps/constants"
	"github.com/wildanal2/ocr-ecosteps/internal/common"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recorder struct {
	mu     sync.Mutex
	body   []byte
	header http.Header
}

func captureServer(t *testing.T, status int, rec *recorder) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		rec.mu.Lock()
		rec.body = body
		rec.header = r.Header.Clone()
		rec.mu.Unlock()
		w.WriteHeader(status)
	}))
}

func sampleReport() Report {
	return Report{
		ReportID: "r1",
		UserID:   "u7",
		ImgURL:   "https://bucket/r1.png",
		RawOCR:   "Aktivitas harian 7.492 langkah",
		ExtractedData: map[string]any{
			"steps":    7492,
			"distance": "5,26",
		},
		AppClass:         "Samsung Health",
		ProcessingTimeMS: 1834,
	}
}

func TestSendPostsPayload(t *testing.T) {
	var rec recorder
	srv := captureServer(t, http.StatusOK, &rec)
	defer srv.Close()

	c := NewClient(Config{
		Default: Endpoint{URL: srv.URL, APIKey: "sekret"},
	}, testLogger())

	if err := c.Send(context.Background(), constants.EnvStaging, sampleReport()); err != nil {
		t.Fatalf("Send: %v", err)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if got := rec.header.Get("x-api-key"); got != "sekret" {
		t.Errorf("x-api-key = %q, want sekret", got)
	}
	if got := rec.header.Get("Content-Type"); got != "application/json" {
		t.Errorf("content type = %q", got)
	}

	var payload map[string]any
	if err := json.Unmarshal(rec.body, &payload); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	for _, key := range []string{"report_id", "user_id", "img_url", "raw_ocr", "extracted_data", "app_class", "processing_time_ms"} {
		if _, ok := payload[key]; !ok {
			t.Errorf("payload missing %q", key)
		}
	}
	if payload["report_id"] != "r1" || payload["app_class"] != "Samsung Health" {
		t.Errorf("payload identity = %v", payload)
	}
	data, ok := payload["extracted_data"].(map[string]any)
	if !ok || data["steps"] != float64(7492) {
		t.Errorf("extracted_data = %v", payload["extracted_data"])
	}
}

func TestSendResolvesEnvironmentEndpoint(t *testing.T) {
	var stagingRec, prodRec recorder
	staging := captureServer(t, http.StatusOK, &stagingRec)
	defer staging.Close()
	prod := captureServer(t, http.StatusOK, &prodRec)
	defer prod.Close()

	c := NewClient(Config{
		Default:    Endpoint{APIKey: "shared-key"},
		Staging:    Endpoint{URL: staging.URL},
		Production: Endpoint{URL: prod.URL, APIKey: "prod-key"},
	}, testLogger())

	ctx := context.Background()
	if err := c.Send(ctx, constants.EnvStaging, sampleReport()); err != nil {
		t.Fatalf("staging send: %v", err)
	}
	if err := c.Send(ctx, constants.EnvProduction, sampleReport()); err != nil {
		t.Fatalf("production send: %v", err)
	}

	// Staging has no key of its own and inherits the shared default.
	stagingRec.mu.Lock()
	if got := stagingRec.header.Get("x-api-key"); got != "shared-key" {
		t.Errorf("staging key = %q, want shared-key", got)
	}
	stagingRec.mu.Unlock()

	prodRec.mu.Lock()
	if got := prodRec.header.Get("x-api-key"); got != "prod-key" {
		t.Errorf("production key = %q, want prod-key", got)
	}
	prodRec.mu.Unlock()
}

func TestSendNon2xxIsError(t *testing.T) {
	var rec recorder
	srv := captureServer(t, http.StatusBadGateway, &rec)
	defer srv.Close()

	c := NewClient(Config{Default: Endpoint{URL: srv.URL}}, testLogger())
	err := c.Send(context.Background(), constants.EnvStaging, sampleReport())
	if !errors.Is(err, common.ErrDelivery) {
		t.Errorf("Send = %v, want ErrDelivery", err)
	}
}

func TestSendNoEndpointConfigured(t *testing.T) {
	c := NewClient(Config{}, testLogger())
	err := c.Send(context.Background(), constants.EnvProduction, sampleReport())
	if !errors.Is(err, common.ErrDelivery) {
		t.Errorf("Send = %v, want ErrDelivery", err)
	}
}
