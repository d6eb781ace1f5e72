// Package series holds the time-indexed value model shared by the accuracy engine.
package series

import (
	"fmt"
	"math"
	"slices"
	"time"
)

// TimePoint is a single observation. A missing value is NaN.
type TimePoint struct {
	Time  time.Time
	Value float64
}

// Missing reports whether the point carries no usable value.
func (p TimePoint) Missing() bool {
	return math.IsNaN(p.Value) || math.IsInf(p.Value, 0)
}

// String implements fmt.Stringer.
func (p TimePoint) String() string {
	return fmt.Sprintf("%s=%g", p.Time.Format(time.RFC3339), p.Value)
}

// Series is an ordered sequence of points. Only Normalize guarantees ordering.
type Series []TimePoint

// NormalizeTime maps t to the single representation used for comparisons:
// a UTC instant with the monotonic reading stripped.
func NormalizeTime(t time.Time) time.Time {
	return t.UTC().Round(0)
}

// Normalize returns a copy sorted ascending by time, with missing values
// dropped and timestamps normalized. Duplicate timestamps keep input order.
func Normalize(s Series) Series {
	out := make(Series, 0, len(s))
	for _, p := range s {
		if p.Missing() {
			continue
		}
		out = append(out, TimePoint{Time: NormalizeTime(p.Time), Value: p.Value})
	}
	slices.SortStableFunc(out, func(a, b TimePoint) int {
		return a.Time.Compare(b.Time)
	})
	return out
}

// Reverse returns a reversed copy.
func Reverse(s Series) Series {
	out := slices.Clone(s)
	slices.Reverse(out)
	return out
}

// Values projects the value column.
func (s Series) Values() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Value
	}
	return out
}

// Times projects the time column.
func (s Series) Times() []time.Time {
	out := make([]time.Time, len(s))
	for i, p := range s {
		out[i] = p.Time
	}
	return out
}

// Newest returns the point with the latest timestamp. ok is false for an empty series.
func (s Series) Newest() (p TimePoint, ok bool) {
	for i, q := range s {
		if i == 0 || q.Time.After(p.Time) {
			p, ok = q, true
		}
	}
	return p, ok
}

// Head returns at most n leading points. n <= 0 keeps everything.
func (s Series) Head(n int) Series {
	if n <= 0 || n >= len(s) {
		return s
	}
	return s[:n]
}

// Filter keeps the points for which keep returns true.
func (s Series) Filter(keep func(TimePoint) bool) Series {
	out := make(Series, 0, len(s))
	for _, p := range s {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

// FromColumns zips equal-length time and value columns.
func FromColumns(t []time.Time, v []float64) (Series, error) {
	if len(t) != len(v) {
		return nil, fmt.Errorf("time column has length %d, values have %d: %w", len(t), len(v), ErrLenMismatch)
	}
	out := make(Series, len(t))
	for i := range t {
		out[i] = TimePoint{Time: t[i], Value: v[i]}
	}
	return out, nil
}
