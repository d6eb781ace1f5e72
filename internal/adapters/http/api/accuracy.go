package api

import (
	"context"
	"net/http"
	"time"

	"github.com/horizontool/horizon/internal/domain/types"
)

// AccuracyDependencies defines the interface for period accuracy operations.
type AccuracyDependencies interface {
	AccuracyByPeriod(ctx context.Context, sensorIDs []string, start, end time.Time) ([]types.SensorAccuracy, error)
}

type accuracyRequest struct {
	SensorIDs []string `json:"sensor_ids" validate:"required,min=1,max=100,dive,required"`
	DateStart string   `json:"date_start" validate:"required"`
	DateEnd   string   `json:"date_end" validate:"required"`
}

// AccuracyHandler handles accuracy requests.
type AccuracyHandler struct {
	deps AccuracyDependencies
}

// NewAccuracyHandler creates a new accuracy handler.
func NewAccuracyHandler(deps AccuracyDependencies) *AccuracyHandler {
	return &AccuracyHandler{deps: deps}
}

// HandleAccuracy handles POST /api/v1/accuracy requests. Dates are
// "2006-01-02 15:04:05" (UTC) or RFC3339.
func (h *AccuracyHandler) HandleAccuracy(w http.ResponseWriter, r *http.Request) {
	var req accuracyRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	start, err := types.ParseTime(req.DateStart)
	if err != nil {
		writeError(w, r, badRequest(err))
		return
	}
	end, err := types.ParseTime(req.DateEnd)
	if err != nil {
		writeError(w, r, badRequest(err))
		return
	}

	out, err := h.deps.AccuracyByPeriod(r.Context(), req.SensorIDs, start, end)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
