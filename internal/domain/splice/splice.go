// Package splice cuts a prediction series at the last known observation.
package splice

import (
	"github.com/horizontool/horizon/internal/domain/series"
)

// Reference limits for the dashboard.
const (
	DefaultHistoryHorizon = 288 // one day at five minute resolution
	DefaultFutureLimit    = 2
)

// Cutoff is the newest ground truth observation of a request.
type Cutoff struct {
	series.TimePoint
}

// CutoffFrom picks the newest non-missing point of truth.
func CutoffFrom(truth series.Series) (Cutoff, error) {
	var (
		c     Cutoff
		found bool
	)
	for _, p := range truth {
		if p.Missing() {
			continue
		}
		if !found || p.Time.After(c.Time) {
			c.TimePoint, found = p, true
		}
	}
	if !found {
		return Cutoff{}, ErrNoCutoff
	}
	c.Time = series.NormalizeTime(c.Time)
	return c, nil
}

// Splice splits prediction around the cutoff.
//
// past starts with the cutoff point followed by prediction rows strictly
// before it, newest first, and holds at most historyHorizon rows.
// future starts with the cutoff point followed by prediction rows strictly
// after it, oldest first, and holds at most futureLimit rows. A limit <= 0
// keeps every row. Prediction rows stamped exactly at the cutoff are
// superseded by the cutoff point.
func Splice(prediction series.Series, cutoff Cutoff, historyHorizon, futureLimit int) (past, future series.Series) {
	p := series.Normalize(prediction)
	head := cutoff.TimePoint
	head.Time = series.NormalizeTime(head.Time)

	past = series.Series{head}
	for i := len(p) - 1; i >= 0; i-- {
		if p[i].Time.Before(head.Time) {
			past = append(past, p[i])
		}
	}

	future = series.Series{head}
	for _, pt := range p {
		if pt.Time.After(head.Time) {
			future = append(future, pt)
		}
	}

	return past.Head(historyHorizon), future.Head(futureLimit)
}
