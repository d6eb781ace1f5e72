package api

import (
	"context"
	"net/http"

	"github.com/horizontool/horizon/internal/domain/types"
)

// DatesDependencies defines the interface for metric date lookups.
type DatesDependencies interface {
	MetricDates(ctx context.Context, sensorIDs []string) (map[string]types.MetricDates, error)
}

// DatesHandler handles metric date requests.
type DatesHandler struct {
	deps DatesDependencies
}

// NewDatesHandler creates a new metric dates handler.
func NewDatesHandler(deps DatesDependencies) *DatesHandler {
	return &DatesHandler{deps: deps}
}

// HandleMetricDates handles POST /api/v1/metric-dates requests.
func (h *DatesHandler) HandleMetricDates(w http.ResponseWriter, r *http.Request) {
	var req sensorsRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.deps.MetricDates(r.Context(), req.SensorIDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
