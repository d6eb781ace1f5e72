// Package types contains the presentation payloads returned to dashboard clients.
package types

import (
	"maps"
	"slices"
	"time"

	json "github.com/goccy/go-json"

	"github.com/horizontool/horizon/internal/domain/metric"
	"github.com/horizontool/horizon/internal/domain/series"
)

// TimeLayout is the wall clock format used in every payload.
const TimeLayout = "2006-01-02 15:04:05"

// Timestamp renders as TimeLayout in UTC.
type Timestamp time.Time

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Time(t).UTC().Format(TimeLayout) + `"`), nil
}

// UnmarshalJSON accepts TimeLayout or RFC3339.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseTime(s)
	if err != nil {
		return err
	}
	*t = Timestamp(v)
	return nil
}

// Time returns the underlying time.
func (t Timestamp) Time() time.Time { return time.Time(t) }

// ParseTime reads TimeLayout (as UTC) or RFC3339.
func ParseTime(s string) (time.Time, error) {
	if v, err := time.Parse(TimeLayout, s); err == nil {
		return v, nil
	}
	return time.Parse(time.RFC3339, s)
}

// Description identifies a sensor.
type Description struct {
	SensorName  string `json:"sensor_name"`
	SensorID    string `json:"sensor_id"`
	Measurement string `json:"measurement,omitempty"`
}

// Point is one chart point.
type Point struct {
	Time  Timestamp `json:"datetime"`
	Value float64   `json:"value"`
}

// Points converts a series for charting.
func Points(s series.Series) []Point {
	out := make([]Point, len(s))
	for i, p := range s {
		out[i] = Point{Time: Timestamp(p.Time), Value: p.Value}
	}
	return out
}

// ChartData holds the lines of the main chart.
type ChartData struct {
	LastRealData []Point            `json:"last_real_data"`
	Predictions  map[string][]Point `json:"predictions"`
	Ensemble     []Point            `json:"ensemble"`
}

// MapData is the chart payload.
type MapData struct {
	Data          ChartData              `json:"data"`
	LastKnownDate Timestamp              `json:"last_know_data"`
	Legend        map[string]LegendEntry `json:"legend"`
}

// DownloadRow is a row of the downloadable forecast table.
type DownloadRow struct {
	Time     Timestamp
	Models   map[string]float64
	Ensemble float64
}

// MarshalJSON flattens model values into "<model>_predict" columns.
func (r DownloadRow) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(r.Models)+2)
	m["datetime"] = r.Time
	for _, id := range slices.Sorted(maps.Keys(r.Models)) {
		m[id+"_predict"] = r.Models[id]
	}
	m["ensemble_predict"] = r.Ensemble
	return json.Marshal(m)
}

// MetricsRow is one row of a per-model metrics table. Errors are rounded.
type MetricsRow struct {
	Time      Timestamp `json:"Time"`
	Actual    float64   `json:"actual"`
	Predicted float64   `json:"predicted"`
	MAPE      float64   `json:"MAPE"`
	RMSE      float64   `json:"RMSE"`
	MAE       float64   `json:"MAE"`
}

// MetricsTable is the accuracy table of one model over the last horizon.
type MetricsTable struct {
	Rows    []MetricsRow `json:"metrics_table"`
	Summary metric.Set   `json:"summary"`
	Text    Localized    `json:"text"`
	Error   string       `json:"error,omitempty"` // set when the model could not be scored
}

// SensorForecast is the dashboard payload of one sensor.
type SensorForecast struct {
	Description     Description             `json:"description"`
	MapData         MapData                 `json:"map_data"`
	TableToDownload []DownloadRow           `json:"table_to_download"`
	MetricTables    map[string]MetricsTable `json:"metric_tables"`
}

// SensorAccuracy holds rounded metrics per model for one window.
type SensorAccuracy struct {
	SensorID string                `json:"sensor_id"`
	Models   map[string]metric.Set `json:"models"`
}

// MetricDates bounds the period a sensor can be evaluated over.
type MetricDates struct {
	EarliestDate     Timestamp `json:"earliest_date"`
	MaxDate          Timestamp `json:"max_date"`
	StartDefaultDate Timestamp `json:"start_default_date"`
	EndDefaultDate   Timestamp `json:"end_default_date"`
}
