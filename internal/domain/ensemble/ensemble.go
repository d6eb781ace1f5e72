// Package ensemble blends model segments that share a time axis.
package ensemble

import (
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/horizontool/horizon/internal/domain/series"
)

// Weights maps a model id to its non-negative weight. Only ratios matter.
type Weights map[string]float64

// EqualWeights gives every id the same share.
func EqualWeights(ids ...string) Weights {
	w := make(Weights, len(ids))
	for _, id := range ids {
		w[id] = 1.0 / float64(len(ids))
	}
	return w
}

// Validate checks that every id in ids has a finite non-negative weight and
// that their total is positive. It returns the total.
func (w Weights) Validate(ids []string) (float64, error) {
	var total float64
	for _, id := range ids {
		v, ok := w[id]
		switch {
		case !ok:
			return 0, fmt.Errorf("%w: no weight for %q", ErrInvalidWeights, id)
		case v < 0 || math.IsNaN(v) || math.IsInf(v, 0):
			return 0, fmt.Errorf("%w: weight %g for %q", ErrInvalidWeights, v, id)
		}
		total += v
	}
	if total <= 0 {
		return 0, fmt.Errorf("%w: total weight %g", ErrInvalidWeights, total)
	}
	return total, nil
}

// Combine returns the weighted average of segments, normalized by the total
// weight. Segments must have identical timestamps in identical order;
// Combine does not align them.
func Combine(segments map[string]series.Series, weights Weights) (series.Series, error) {
	if len(segments) == 0 {
		return nil, ErrNoSegments
	}
	ids := slices.Sorted(maps.Keys(segments))
	total, err := weights.Validate(ids)
	if err != nil {
		return nil, err
	}

	ref := segments[ids[0]]
	for _, id := range ids[1:] {
		s := segments[id]
		if len(s) != len(ref) {
			return nil, &ShapeError{Model: id, Index: -1, Want: len(ref), Got: len(s)}
		}
		for i := range s {
			if !s[i].Time.Equal(ref[i].Time) {
				return nil, &ShapeError{Model: id, Index: i, WantTime: ref[i].Time, GotTime: s[i].Time}
			}
		}
	}

	out := make(series.Series, len(ref))
	for i := range ref {
		var sum float64
		for _, id := range ids {
			sum += weights[id] * segments[id][i].Value
		}
		out[i] = series.TimePoint{Time: ref[i].Time, Value: sum / total}
	}
	return out, nil
}
