// Package extract turns recognized text fragments into structured fitness
// fields. Step extraction runs in two stages: a layout pass that anchors
// vendor-specific UI landmarks in the fragment sequence, then an ordered
// regex fallback over the flattened text.
package extract

import (
	"log/slog"

	"github.com/wildanal2/ocr-ecosteps/constants"
	"github.com/wildanal2/ocr-ecosteps/internal/recognize"
)

// Engine is stateless and safe for concurrent use.
type Engine struct {
	logger *slog.Logger
}

func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger}
}

// Extract produces the field record for one job. Identical fragments and
// label always produce an identical result.
func (e *Engine) Extract(frags []recognize.Fragment, label constants.AppClass) Result {
	text := recognize.Flatten(frags)

	var r Result
	if steps, ok := stepsByLayout(frags, label); ok {
		r.Steps = &steps
		e.logger.Debug("steps found by layout", "app_class", string(label), "steps", steps)
	} else if steps, ok := stepsByPattern(text, label); ok {
		r.Steps = &steps
		e.logger.Debug("steps found by pattern", "app_class", string(label), "steps", steps)
	} else {
		e.logger.Debug("steps not found", "app_class", string(label))
	}

	secondaryFields(text, &r)
	return r
}
