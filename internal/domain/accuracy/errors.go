package accuracy

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel kinds for accuracy errors.
var (
	ErrInsufficientOverlap = errors.New("no ground truth row matched a prediction")
	ErrInvalidWindow       = errors.New("window end must be after start")
)

// OverlapError names the model and window that produced an empty alignment.
type OverlapError struct {
	Model  string
	Window Window
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("model %q, window (%s, %s]: %v", e.Model,
		e.Window.Start.Format(time.RFC3339), e.Window.End.Format(time.RFC3339), ErrInsufficientOverlap)
}

func (e *OverlapError) Unwrap() error { return ErrInsufficientOverlap }
