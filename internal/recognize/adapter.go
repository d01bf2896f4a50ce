package recognize

import (
	"context"
	"log/slog"
	"time"
)

// Adapter owns image acquisition and preprocessing ahead of the opaque
// recognition engine. It is the only component that touches image bytes.
type Adapter struct {
	fetcher *Fetcher
	engine  Recognizer
	logger  *slog.Logger
}

func NewAdapter(fetcher *Fetcher, engine Recognizer, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{fetcher: fetcher, engine: engine, logger: logger}
}

// Recognize fetches, preprocesses, and recognizes an image source.
// Failures carry ErrAcquisition (fetch/decode) or ErrRecognition (engine).
func (a *Adapter) Recognize(ctx context.Context, source string) ([]Fragment, error) {
	start := time.Now()

	raw, err := a.fetcher.Fetch(ctx, source)
	if err != nil {
		return nil, err
	}

	img, err := Preprocess(raw)
	if err != nil {
		return nil, err
	}

	frags, err := a.engine.Recognize(ctx, img)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("image recognized",
		"source", source,
		"fragments", len(frags),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return frags, nil
}
