package recognize

import (
	"context"
	"strings"
)

// Box is a fragment's bounding box in preprocessed-image pixels.
type Box struct {
	Left   int
	Top    int
	Width  int
	Height int
}

// Fragment is one recognized text span with its position and confidence.
// Fragments are ordered top-to-bottom, left-to-right as emitted by the engine.
type Fragment struct {
	Text       string
	Box        Box
	Confidence float32 // 0..1
}

// Recognizer is the opaque recognition capability: image bytes in,
// positioned text fragments out.
type Recognizer interface {
	Recognize(ctx context.Context, img []byte) ([]Fragment, error)
}

// Flatten joins fragment texts with single spaces, in fragment order.
// Classification and the regex extraction stage operate on this string.
func Flatten(frags []Fragment) string {
	parts := make([]string, 0, len(frags))
	for _, f := range frags {
		if t := strings.TrimSpace(f.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
