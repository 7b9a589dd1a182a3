package core

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so callers can react to it. Every error that
// leaves the cloning pipeline carries exactly one kind.
type Kind string

// Error kinds.
const (
	KindInvalidInput        Kind = "invalid_input"
	KindResourceUnavailable Kind = "resource_unavailable"
	KindGenerationFailed    Kind = "generation_failed"
)

// ErrClipNotFound is returned by clip stores when a key does not exist.
var ErrClipNotFound = errors.New("clip not found")

// User-facing messages, one per kind.
const (
	msgInvalidInput        = "The request could not be processed. Check the uploaded samples, text and preset."
	msgResourceUnavailable = "The voice engine is busy or unavailable. Please try again shortly."
	msgGenerationFailed    = "Voice generation failed. Try different samples or a different preset."
)

// Error wraps an underlying failure with its kind and the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// NewError wraps err with kind and op. It returns nil when err is nil.
func NewError(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}

	return &Error{Kind: kind, Op: op, Err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap exposes the underlying error to errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf reports the kind of err. Errors without a kind are treated as
// generation failures.
func KindOf(err error) Kind {
	var kindErr *Error
	if errors.As(err, &kindErr) {
		return kindErr.Kind
	}

	return KindGenerationFailed
}

// UserMessage returns the message shown to the user for this kind.
func (k Kind) UserMessage() string {
	switch k {
	case KindInvalidInput:
		return msgInvalidInput
	case KindResourceUnavailable:
		return msgResourceUnavailable
	default:
		return msgGenerationFailed
	}
}
