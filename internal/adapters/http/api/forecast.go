package api

import (
	"context"
	"net/http"

	"github.com/horizontool/horizon/internal/domain/types"
)

// ForecastDependencies defines the interface for forecast operations.
type ForecastDependencies interface {
	Forecast(ctx context.Context, sensorIDs []string) ([]types.SensorForecast, error)
}

// ForecastHandler handles forecast requests.
type ForecastHandler struct {
	deps ForecastDependencies
}

// NewForecastHandler creates a new forecast handler.
func NewForecastHandler(deps ForecastDependencies) *ForecastHandler {
	return &ForecastHandler{deps: deps}
}

// HandleForecast handles POST /api/v1/forecast requests.
func (h *ForecastHandler) HandleForecast(w http.ResponseWriter, r *http.Request) {
	var req sensorsRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.deps.Forecast(r.Context(), req.SensorIDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
