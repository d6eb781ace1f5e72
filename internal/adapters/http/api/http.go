// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	json "github.com/goccy/go-json"
	"github.com/go-playground/validator/v10"

	"github.com/horizontool/horizon/internal/domain/types"
	"github.com/horizontool/horizon/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Forecast(ctx context.Context, sensorIDs []string) ([]types.SensorForecast, error)
	AccuracyByPeriod(ctx context.Context, sensorIDs []string, start, end time.Time) ([]types.SensorAccuracy, error)
	MetricDates(ctx context.Context, sensorIDs []string) (map[string]types.MetricDates, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	forecastHandler *ForecastHandler
	accuracyHandler *AccuracyHandler
	datesHandler    *DatesHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		forecastHandler: NewForecastHandler(deps),
		accuracyHandler: NewAccuracyHandler(deps),
		datesHandler:    NewDatesHandler(deps),
	}
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(_ context.Context, r chi.Router) {
	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/forecast", MetricsMiddleware(s.forecastHandler.HandleForecast, "forecast"))
		r.Post("/accuracy", MetricsMiddleware(s.accuracyHandler.HandleAccuracy, "accuracy"))
		r.Post("/metric-dates", MetricsMiddleware(s.datesHandler.HandleMetricDates, "metric_dates"))
	})
}

// NewRouter returns a chi router with the common middleware stack.
func NewRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(chimiddleware.Recoverer)
	return r
}

// sensorsRequest is the body of every sensor-scoped POST.
type sensorsRequest struct {
	SensorIDs []string `json:"sensor_ids" validate:"required,min=1,max=100,dive,required"`
}

type errorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

var validate = validator.New(validator.WithRequiredStructEnabled()) //nolint:gochecknoglobals // validator caches struct metadata

// decode reads a JSON body into v and validates it.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest(err)
	}
	if err := validate.Struct(v); err != nil {
		return badRequest(err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		logger.Get().Named("api").Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path),
			logger.String("request_id", RequestIDFrom(r.Context())),
			logger.Error(err),
		)
	}
	writeJSON(w, status, errorResponse{Code: code, Message: err.Error(), RequestID: RequestIDFrom(r.Context())})
}
