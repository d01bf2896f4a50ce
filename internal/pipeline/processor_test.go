package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/wildanal2/ocr-ecosteps/constants"
	"github.com/wildanal2/ocr-ecosteps/internal/common"
	"github.com/wildanal2/ocr-ecosteps/internal/extract"
	"github.com/wildanal2/ocr-ecosteps/internal/recognize"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type cannedEngine struct {
	frags []recognize.Fragment
	err   error
}

func (c *cannedEngine) Recognize(_ context.Context, _ []byte) ([]recognize.Fragment, error) {
	return c.frags, c.err
}

func writeTestImage(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 3, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			img.Set(x, y, color.RGBA{R: 30, G: 60, B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	path := filepath.Join(t.TempDir(), "shot.png")
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func newProcessor(engine recognize.Recognizer) *Processor {
	adapter := recognize.NewAdapter(recognize.NewFetcher(time.Second), engine, testLogger())
	return NewProcessor(adapter, extract.NewEngine(testLogger()), testLogger())
}

func TestProcessEndToEnd(t *testing.T) {
	path := writeTestImage(t)
	engine := &cannedEngine{frags: []recognize.Fragment{
		{Text: "Heart Pts"},
		{Text: "16,331", Box: recognize.Box{Top: 10}},
		{Text: "Move Min 42"},
	}}

	out, err := newProcessor(engine).Process(context.Background(), path, "")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if out.AppClass != constants.GoogleFit {
		t.Errorf("app class = %s, want Google Fit", out.AppClass)
	}
	if out.RawText != "Heart Pts 16,331 Move Min 42" {
		t.Errorf("raw text = %q", out.RawText)
	}
	if out.Data.Steps == nil || *out.Data.Steps != 16331 {
		t.Errorf("steps = %v, want 16331", out.Data.Steps)
	}
	if len(out.Fragments) != 3 {
		t.Errorf("fragments = %d, want 3", len(out.Fragments))
	}
	if out.Duration <= 0 {
		t.Error("duration not measured")
	}
}

func TestProcessHintOverridesClassification(t *testing.T) {
	path := writeTestImage(t)
	engine := &cannedEngine{frags: []recognize.Fragment{{Text: "fitbit Today 11,820 Steps"}}}

	out, err := newProcessor(engine).Process(context.Background(), path, "garmin")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out.AppClass != constants.GarminConnect {
		t.Errorf("app class = %s, want Garmin Connect (hinted)", out.AppClass)
	}
}

func TestProcessAcquisitionFailure(t *testing.T) {
	engine := &cannedEngine{}
	_, err := newProcessor(engine).Process(context.Background(), filepath.Join(t.TempDir(), "missing.png"), "")
	if !errors.Is(err, common.ErrAcquisition) {
		t.Errorf("Process = %v, want ErrAcquisition", err)
	}
}

func TestProcessRecognitionFailure(t *testing.T) {
	path := writeTestImage(t)
	engine := &cannedEngine{err: common.ErrRecognition}
	_, err := newProcessor(engine).Process(context.Background(), path, "")
	if !errors.Is(err, common.ErrRecognition) {
		t.Errorf("Process = %v, want ErrRecognition", err)
	}
}
