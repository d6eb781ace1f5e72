package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/horizontool/horizon/internal/adapters/repository"
	"github.com/horizontool/horizon/internal/adapters/resolver"
	"github.com/horizontool/horizon/internal/domain/accuracy"
	"github.com/horizontool/horizon/internal/domain/ensemble"
	"github.com/horizontool/horizon/internal/domain/metric"
	"github.com/horizontool/horizon/internal/domain/splice"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
)

func badRequest(err error) error {
	return fmt.Errorf("%w: %w", ErrBadRequest, err)
}

// classify maps an error to its HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, accuracy.ErrInvalidWindow):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, resolver.ErrUnknownSensor):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, accuracy.ErrInsufficientOverlap),
		errors.Is(err, metric.ErrDegenerateInput),
		errors.Is(err, metric.ErrInvalidInput),
		errors.Is(err, ensemble.ErrShapeMismatch),
		errors.Is(err, ensemble.ErrInvalidWeights),
		errors.Is(err, repository.ErrEmptySeries),
		errors.Is(err, splice.ErrNoCutoff):
		return http.StatusUnprocessableEntity, "unprocessable"
	case errors.Is(err, repository.ErrUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
