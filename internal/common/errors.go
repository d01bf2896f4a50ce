package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Pipeline error taxonomy. Errors inside a single job's processing are
// contained within that job's worker iteration; the only one surfaced
// synchronously to a submitter is ErrQueueFull.
var (
	ErrValidation  = errors.New("invalid job submission")
	ErrQueueFull   = errors.New("queue is full")
	ErrAcquisition = errors.New("image acquisition failed")
	ErrRecognition = errors.New("recognition failed")
	ErrDelivery    = errors.New("result delivery failed")
)

func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
