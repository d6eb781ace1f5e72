// Package align matches ground truth rows to the nearest prediction in time.
package align

import (
	"time"

	"github.com/horizontool/horizon/internal/domain/series"
)

// DefaultTolerance is the match window used by the dashboard and accuracy endpoints.
const DefaultTolerance = 300 * time.Second

// Row is one matched observation. Time is the ground truth timestamp.
type Row struct {
	Time      time.Time
	Truth     float64
	Predicted float64
}

// Pair is an aligned ground truth / prediction frame in ascending time order.
type Pair struct {
	Rows []Row
	// Dropped counts ground truth rows that had no prediction within tolerance.
	Dropped int
}

// Len returns the number of matched rows.
func (p Pair) Len() int { return len(p.Rows) }

// Empty reports whether nothing matched.
func (p Pair) Empty() bool { return len(p.Rows) == 0 }

// Truth projects the ground truth column.
func (p Pair) Truth() []float64 {
	out := make([]float64, len(p.Rows))
	for i, r := range p.Rows {
		out[i] = r.Truth
	}
	return out
}

// Predicted projects the prediction column.
func (p Pair) Predicted() []float64 {
	out := make([]float64, len(p.Rows))
	for i, r := range p.Rows {
		out[i] = r.Predicted
	}
	return out
}

// Times projects the timestamp column.
func (p Pair) Times() []time.Time {
	out := make([]time.Time, len(p.Rows))
	for i, r := range p.Rows {
		out[i] = r.Time
	}
	return out
}

// Align matches each ground truth point to the nearest prediction within
// tolerance (inclusive). Equidistant candidates resolve to the earlier one.
// A prediction may serve several ground truth rows. Both inputs are
// normalized first, so callers may pass them in any order.
func Align(truth, prediction series.Series, tolerance time.Duration) Pair {
	t := series.Normalize(truth)
	p := series.Normalize(prediction)
	if len(t) == 0 || len(p) == 0 {
		return Pair{Dropped: len(t)}
	}

	rows := make([]Row, 0, len(t))
	dropped := 0
	// j is the last prediction at or before the current truth time, -1 if none.
	j := -1
	for _, tp := range t {
		for j+1 < len(p) && !p[j+1].Time.After(tp.Time) {
			j++
		}

		best, bestDist := -1, time.Duration(0)
		if j >= 0 {
			// first of a run of equal timestamps keeps input order
			k := j
			for k > 0 && p[k-1].Time.Equal(p[j].Time) {
				k--
			}
			best, bestDist = k, tp.Time.Sub(p[k].Time)
		}
		if j+1 < len(p) {
			d := p[j+1].Time.Sub(tp.Time)
			if best < 0 || d < bestDist {
				best, bestDist = j+1, d
			}
		}

		if best < 0 || bestDist > tolerance {
			dropped++
			continue
		}
		rows = append(rows, Row{Time: tp.Time, Truth: tp.Value, Predicted: p[best].Value})
	}
	return Pair{Rows: rows, Dropped: dropped}
}

// Onto aligns every series in others onto the time axis of base and keeps
// only the timestamps every series could match. The returned map holds
// base under baseID plus one entry per other series, all sharing one axis.
func Onto(baseID string, base series.Series, others map[string]series.Series, tolerance time.Duration) map[string]series.Series {
	axis := series.Normalize(base)
	keep := make([]bool, len(axis))
	for i := range keep {
		keep[i] = true
	}

	matched := make(map[string]map[time.Time]float64, len(others))
	for id, s := range others {
		pair := Align(axis, s, tolerance)
		m := make(map[time.Time]float64, pair.Len())
		for _, r := range pair.Rows {
			m[r.Time] = r.Predicted
		}
		matched[id] = m
		for i, pt := range axis {
			if _, ok := m[pt.Time]; !ok {
				keep[i] = false
			}
		}
	}

	out := make(map[string]series.Series, len(others)+1)
	out[baseID] = make(series.Series, 0, len(axis))
	for id := range others {
		out[id] = make(series.Series, 0, len(axis))
	}
	for i, pt := range axis {
		if !keep[i] {
			continue
		}
		out[baseID] = append(out[baseID], pt)
		for id, m := range matched {
			out[id] = append(out[id], series.TimePoint{Time: pt.Time, Value: m[pt.Time]})
		}
	}
	return out
}
