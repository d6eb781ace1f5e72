package ensemble

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel kinds for ensemble errors.
var (
	ErrShapeMismatch  = errors.New("ensemble segments are not on one time axis")
	ErrInvalidWeights = errors.New("invalid ensemble weights")
	ErrNoSegments     = errors.New("no segments to combine")
)

// ShapeError describes the first disagreement between a segment and the reference axis.
type ShapeError struct {
	Model    string
	Index    int // -1 for a length mismatch
	Want     int
	Got      int
	WantTime time.Time
	GotTime  time.Time
}

func (e *ShapeError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%v: segment %q has %d rows, want %d", ErrShapeMismatch, e.Model, e.Got, e.Want)
	}
	return fmt.Sprintf("%v: segment %q row %d at %s, want %s", ErrShapeMismatch, e.Model, e.Index,
		e.GotTime.Format(time.RFC3339), e.WantTime.Format(time.RFC3339))
}

func (e *ShapeError) Unwrap() error { return ErrShapeMismatch }
