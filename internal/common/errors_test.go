package common

import (
	"errors"
	"strings"
	"testing"
)

func TestAppErrorUnwrap(t *testing.T) {
	err := NewAppError("OCR_ERROR", "tesseract exited 1", ErrRecognition)
	if !errors.Is(err, ErrRecognition) {
		t.Errorf("errors.Is = false, want true")
	}
	if msg := err.Error(); !strings.Contains(msg, "OCR_ERROR") || !strings.Contains(msg, "tesseract exited 1") {
		t.Errorf("Error() = %q", msg)
	}

	bare := NewAppError("CONFIG_ERROR", "missing addr", nil)
	if msg := bare.Error(); msg != "CONFIG_ERROR: missing addr" {
		t.Errorf("Error() without cause = %q", msg)
	}
}

func TestWrapError(t *testing.T) {
	if WrapError(nil, "context") != nil {
		t.Error("WrapError(nil) should be nil")
	}
	wrapped := WrapError(ErrQueueFull, "submit r1")
	if !errors.Is(wrapped, ErrQueueFull) {
		t.Errorf("wrapped = %v, want ErrQueueFull in chain", wrapped)
	}
}
