package metric

import (
	"errors"
	"fmt"
)

// Sentinel kinds for metric errors.
var (
	// ErrDegenerateInput is returned when the ground truth vector is all zeros.
	ErrDegenerateInput = errors.New("degenerate input: ground truth is all zeros")
	// ErrInvalidInput is returned for mismatched, empty or non-finite input and for non-finite results.
	ErrInvalidInput = errors.New("invalid metric input")
)

// InputError keeps the values that made a metric fail.
// Index is -1 when the failure is not tied to a single element.
type InputError struct {
	Op    string
	Index int
	Value float64
	Err   error
}

func (e *InputError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: %v (value=%g)", e.Op, e.Err, e.Value)
	}
	return fmt.Sprintf("%s: %v at index %d (value=%g)", e.Op, e.Err, e.Index, e.Value)
}

func (e *InputError) Unwrap() error { return e.Err }

func invalid(op string, index int, value float64, reason string) error {
	return &InputError{Op: op, Index: index, Value: value, Err: fmt.Errorf("%w: %s", ErrInvalidInput, reason)}
}
