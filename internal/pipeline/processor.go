// Package pipeline coordinates recognition, classification and extraction
// for a single job.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/wildanal2/ocr-ecosteps/constants"
	"github.com/wildanal2/ocr-ecosteps/internal/classify"
	"github.com/wildanal2/ocr-ecosteps/internal/extract"
	"github.com/wildanal2/ocr-ecosteps/internal/recognize"
)

// Outcome is the full result of processing one screenshot.
type Outcome struct {
	RawText   string
	Fragments []recognize.Fragment
	AppClass  constants.AppClass
	Data      extract.Result
	Duration  time.Duration
}

// Processor runs recognize -> classify -> extract.
type Processor struct {
	adapter *recognize.Adapter
	engine  *extract.Engine
	logger  *slog.Logger
}

func NewProcessor(adapter *recognize.Adapter, engine *extract.Engine, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{adapter: adapter, engine: engine, logger: logger}
}

// Process recognizes the image at source and derives the structured
// record. categoryHint, when non-empty, short-circuits classification
// (local/offline validation mode). Errors carry ErrAcquisition or
// ErrRecognition; classification and extraction cannot fail.
func (p *Processor) Process(ctx context.Context, source, categoryHint string) (Outcome, error) {
	start := time.Now()

	frags, err := p.adapter.Recognize(ctx, source)
	if err != nil {
		p.logger.Error("pipeline recognition failed", "source", source, "error", err)
		return Outcome{Duration: time.Since(start)}, err
	}

	raw := recognize.Flatten(frags)
	label := classify.Classify(raw, categoryHint)
	data := p.engine.Extract(frags, label)

	out := Outcome{
		RawText:   raw,
		Fragments: frags,
		AppClass:  label,
		Data:      data,
		Duration:  time.Since(start),
	}

	p.logger.Info("pipeline processed image",
		"source", source,
		"app_class", string(label),
		"fields", len(data.Map()),
		"duration_ms", out.Duration.Milliseconds(),
	)
	return out, nil
}
