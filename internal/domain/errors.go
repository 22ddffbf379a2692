package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrFetch matches every *FetchError via errors.Is.
	ErrFetch = errors.New("fetch events")

	// ErrMalformedResponse is returned when the upstream body cannot be decoded.
	ErrMalformedResponse = errors.New("malformed response")
)

// FieldError describes one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects problems with caller-supplied criteria or regions.
// It is returned, never panicked, so callers can show the messages.
type ValidationError struct {
	Problems []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		parts[i] = p.Field + ": " + p.Message
	}
	return "invalid criteria: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, format string, args ...any) {
	e.Problems = append(e.Problems, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (e *ValidationError) merge(other *ValidationError) {
	if other != nil {
		e.Problems = append(e.Problems, other.Problems...)
	}
}

// orNil returns e when it holds problems, otherwise a nil error.
func (e *ValidationError) orNil() error {
	if len(e.Problems) == 0 {
		return nil
	}
	return e
}

// FetchError is a failure of the remote event query. Retryable marks
// transport or upstream failures that may succeed on a later attempt.
type FetchError struct {
	Op         string
	StatusCode int
	Retryable  bool
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrFetch) match any FetchError.
func (e *FetchError) Is(target error) bool { return target == ErrFetch }

// IsRetryable reports whether err is a FetchError marked retryable.
func IsRetryable(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Retryable
}
