// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Load layers a YAML file and HORIZON_* environment variables over New.
// - Validation errors wrap ErrInvalidConfig, loading errors wrap ErrLoadConfig.
package config

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Default sensor wired when no sensors are configured.
const (
	DefaultSensorID    = "arithmetic_1464947681"
	DefaultSensorName  = "Arithmetic sensor 1464947681"
	DefaultTruthSeries = "load_consumption"
	DefaultValueColumn = "load_consumption"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the handler: json or text.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the compute task queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of compute workers.
	WorkerCount int `koanf:"worker_count"`

	// Parallelism caps how many sensors are processed concurrently per request.
	Parallelism int `koanf:"parallelism"`

	Forecast ForecastConfig          `koanf:"forecast"`
	Database DatabaseConfig          `koanf:"database"`
	Breaker  BreakerConfig           `koanf:"breaker"`
	Sensors  map[string]SensorConfig `koanf:"sensors"`
}

// ForecastConfig holds the splice, alignment and window settings.
type ForecastConfig struct {
	// HistoryHorizon is the number of past rows kept per model and the
	// number of newest ground-truth rows they are scored against.
	HistoryHorizon int `koanf:"history_horizon"`

	// RealLimit caps the last real segment shown on the chart.
	RealLimit int `koanf:"real_limit"`

	// PredictionLimit caps the rows fetched per model series.
	PredictionLimit int `koanf:"prediction_limit"`

	// FutureLimit caps each model's future segment, cutoff included.
	FutureLimit int `koanf:"future_limit"`

	Tolerance     time.Duration `koanf:"tolerance"`
	DefaultWindow time.Duration `koanf:"default_window"`
}

// DatabaseConfig configures the PostgreSQL store. An empty DSN selects the
// in-memory store.
type DatabaseConfig struct {
	DSN             string        `koanf:"dsn"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
	QueryTimeout    time.Duration `koanf:"query_timeout"`
}

// BreakerConfig configures the circuit breaker around the store.
type BreakerConfig struct {
	MaxRequests      uint32        `koanf:"max_requests"`
	Interval         time.Duration `koanf:"interval"`
	Timeout          time.Duration `koanf:"timeout"`
	FailureThreshold uint32        `koanf:"failure_threshold"`
}

// SensorConfig maps a sensor id to its stored series.
type SensorConfig struct {
	Name        string        `koanf:"name"`
	Measurement string        `koanf:"measurement"`
	Truth       string        `koanf:"truth"`
	TimeColumn  string        `koanf:"time_column"`
	// ValueColumn holds the reading in the truth and every prediction table.
	ValueColumn string        `koanf:"value_column"`
	Models      []ModelConfig `koanf:"models"`
}

// ModelConfig names one forecasting model's prediction series.
type ModelConfig struct {
	ID          string  `koanf:"id"`
	Series      string  `koanf:"series"`
	Weight      float64 `koanf:"weight"`
	ValueColumn string  `koanf:"value_column"` // overrides the sensor's value column
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:    "info",
		LogFormat:   "json",
		Addr:        ":9080",
		QueueSize:   1024,
		WorkerCount: runtime.NumCPU(),
		Parallelism: runtime.NumCPU(),
		Forecast: ForecastConfig{
			HistoryHorizon:  288,
			RealLimit:       300,
			PredictionLimit: 1000,
			FutureLimit:     2,
			Tolerance:       300 * time.Second,
			DefaultWindow:   24 * time.Hour,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
			QueryTimeout:    10 * time.Second,
		},
		Breaker: BreakerConfig{
			MaxRequests:      1,
			Interval:         time.Minute,
			Timeout:          30 * time.Second,
			FailureThreshold: 5,
		},
		Sensors: DefaultSensors(),
	}
}

// DefaultSensors returns the sensor set used when none are configured.
func DefaultSensors() map[string]SensorConfig {
	return map[string]SensorConfig{
		DefaultSensorID: {
			Name:        DefaultSensorName,
			Measurement: "kW",
			Truth:       DefaultTruthSeries,
			ValueColumn: DefaultValueColumn,
			Models: []ModelConfig{
				{ID: "LSTM", Series: "predict_load_consumption", Weight: 0.5},
				{ID: "XGBoost", Series: "xgb_predict_load_consumption", Weight: 0.5},
			},
		},
	}
}

// Validate reports the first inconsistent setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return invalid("addr must not be empty")
	case c.QueueSize < 0:
		return invalid("queue_size must not be negative")
	case c.WorkerCount < 0:
		return invalid("worker_count must not be negative")
	case c.Parallelism < 1:
		return invalid("parallelism must be at least 1")
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
	default:
		return invalid(fmt.Sprintf("log_format %q must be json or text", c.LogFormat))
	}

	f := c.Forecast
	switch {
	case f.HistoryHorizon < 1:
		return invalid("forecast.history_horizon must be positive")
	case f.RealLimit < 1:
		return invalid("forecast.real_limit must be positive")
	case f.PredictionLimit < 1:
		return invalid("forecast.prediction_limit must be positive")
	case f.FutureLimit < 0:
		return invalid("forecast.future_limit must not be negative")
	case f.Tolerance < 0:
		return invalid("forecast.tolerance must not be negative")
	case f.DefaultWindow <= 0:
		return invalid("forecast.default_window must be positive")
	}

	if c.Database.DSN != "" && c.Database.QueryTimeout <= 0 {
		return invalid("database.query_timeout must be positive")
	}
	if c.Breaker.FailureThreshold == 0 {
		return invalid("breaker.failure_threshold must be positive")
	}

	if len(c.Sensors) == 0 {
		return invalid("at least one sensor must be configured")
	}
	for id, s := range c.Sensors {
		if err := s.validate(id); err != nil {
			return err
		}
	}
	return nil
}

func (s SensorConfig) validate(id string) error {
	if s.Truth == "" {
		return invalid(fmt.Sprintf("sensor %s: truth must not be empty", id))
	}
	if len(s.Models) == 0 {
		return invalid(fmt.Sprintf("sensor %s: at least one model required", id))
	}
	var total float64
	seen := make(map[string]struct{}, len(s.Models))
	for i, m := range s.Models {
		if m.ID == "" || m.Series == "" {
			return invalid(fmt.Sprintf("sensor %s: model %d needs id and series", id, i))
		}
		if _, dup := seen[m.ID]; dup {
			return invalid(fmt.Sprintf("sensor %s: duplicate model %s", id, m.ID))
		}
		seen[m.ID] = struct{}{}
		if m.Weight < 0 {
			return invalid(fmt.Sprintf("sensor %s: model %s has negative weight", id, m.ID))
		}
		total += m.Weight
	}
	if total <= 0 {
		return invalid(fmt.Sprintf("sensor %s: model weights must sum to a positive value", id))
	}
	return nil
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, msg)
}
