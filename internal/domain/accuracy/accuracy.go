// Package accuracy scores model predictions against ground truth.
//
// Windows filter ground truth with Start < t <= End and predictions with
// Start <= t < End, so adjacent windows never share a ground truth row.
// Alignment uses the nearest prediction within a tolerance; a model with
// no matched row fails with ErrInsufficientOverlap.
package accuracy

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/horizontool/horizon/internal/domain/align"
	"github.com/horizontool/horizon/internal/domain/metric"
	"github.com/horizontool/horizon/internal/domain/series"
)

// Window is an evaluation period.
type Window struct {
	Start time.Time
	End   time.Time
}

// Validate rejects empty or inverted windows.
func (w Window) Validate() error {
	if !w.End.After(w.Start) {
		return fmt.Errorf("%w: start %s, end %s", ErrInvalidWindow, w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
	}
	return nil
}

// Truth keeps points with Start < t <= End.
func (w Window) Truth(s series.Series) series.Series {
	return s.Filter(func(p series.TimePoint) bool {
		return p.Time.After(w.Start) && !p.Time.After(w.End)
	})
}

// Prediction keeps points with Start <= t < End.
func (w Window) Prediction(s series.Series) series.Series {
	return s.Filter(func(p series.TimePoint) bool {
		return !p.Time.Before(w.Start) && p.Time.Before(w.End)
	})
}

// Row is one aligned observation with its error contributions.
type Row struct {
	Time      time.Time
	Truth     float64
	Predicted float64
	Errors    metric.PointError
}

// Report is the accuracy of one model.
type Report struct {
	Model string
	// Raw is unrounded and safe for further aggregation.
	Raw     metric.Set
	Summary metric.Set
	Rows    []Row
	Matched int
	Dropped int
}

// EvaluatePair scores an already aligned pair.
func EvaluatePair(model string, pair align.Pair) (Report, error) {
	if pair.Empty() {
		return Report{}, &OverlapError{Model: model}
	}
	truth, pred := pair.Truth(), pair.Predicted()
	raw, err := metric.Compute(truth, pred)
	if err != nil {
		return Report{}, fmt.Errorf("model %q: %w", model, err)
	}
	points, err := metric.PointErrors(truth, pred)
	if err != nil {
		return Report{}, fmt.Errorf("model %q: %w", model, err)
	}

	rows := make([]Row, pair.Len())
	for i, r := range pair.Rows {
		rows[i] = Row{Time: r.Time, Truth: r.Truth, Predicted: r.Predicted, Errors: points[i]}
	}
	return Report{
		Model:   model,
		Raw:     raw,
		Summary: raw.Rounded(),
		Rows:    rows,
		Matched: pair.Len(),
		Dropped: pair.Dropped,
	}, nil
}

// Scorer turns an aligned, non-empty pair into a Report. EvaluatePair is the
// default; callers may route the work elsewhere, e.g. a worker pool.
type Scorer func(model string, pair align.Pair) (Report, error)

// EvaluateModel filters both series to window, aligns them and scores the result.
func EvaluateModel(model string, truth, prediction series.Series, window Window, tolerance time.Duration) (Report, error) {
	return EvaluateModelWith(EvaluatePair, model, truth, prediction, window, tolerance)
}

// EvaluateModelWith is EvaluateModel with a custom scorer.
func EvaluateModelWith(score Scorer, model string, truth, prediction series.Series, window Window, tolerance time.Duration) (Report, error) {
	pair := align.Align(window.Truth(truth), window.Prediction(prediction), tolerance)
	if pair.Empty() {
		return Report{}, &OverlapError{Model: model, Window: window}
	}
	return score(model, pair)
}

// Evaluate scores every model over window. Models are processed in id order
// and the first failure is returned.
func Evaluate(truth series.Series, models map[string]series.Series, window Window, tolerance time.Duration) (map[string]Report, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}
	out := make(map[string]Report, len(models))
	for _, id := range slices.Sorted(maps.Keys(models)) {
		r, err := EvaluateModel(id, truth, models[id], window, tolerance)
		if err != nil {
			return nil, err
		}
		out[id] = r
	}
	return out, nil
}
