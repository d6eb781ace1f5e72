package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrEmptySeries   = errors.New("series has no rows")
	ErrUnknownSeries = errors.New("series does not exist")
	ErrInvalidRef    = errors.New("invalid series reference")
	ErrReleased      = errors.New("store handle already released")
	ErrUnavailable   = errors.New("store unavailable")
)
