package accuracy

import (
	"errors"
	"testing"
	"time"

	"github.com/horizontool/horizon/internal/domain/align"
	"github.com/horizontool/horizon/internal/domain/metric"
	"github.com/horizontool/horizon/internal/domain/series"
	. "github.com/smartystreets/goconvey/convey"
)

var t0 = time.Date(2025, 7, 12, 10, 0, 0, 0, time.UTC)

func at(min int, v float64) series.TimePoint {
	return series.TimePoint{Time: t0.Add(time.Duration(min) * time.Minute), Value: v}
}

func TestEvaluateEndToEnd(t *testing.T) {
	Convey("Given three truth rows and an XGBoost prediction", t, func() {
		truth := series.Series{at(0, 10), at(5, 12), at(10, 11)}
		xgb := series.Series{at(0, 11), at(5, 11), at(10, 12)}
		window := Window{Start: t0.Add(-time.Hour), End: t0.Add(time.Hour)}

		reports, err := Evaluate(truth, map[string]series.Series{"XGBoost": xgb}, window, time.Hour)

		Convey("Then all rows align and MAE and RMSE are one", func() {
			So(err, ShouldBeNil)
			r := reports["XGBoost"]
			So(r.Matched, ShouldEqual, 3)
			So(r.Raw.MAE, ShouldAlmostEqual, 1.0, 1e-12)
			So(r.Raw.RMSE, ShouldAlmostEqual, 1.0, 1e-12)
			So(r.Summary.WMAPE, ShouldEqual, 9.09)
			So(r.Raw.WMAPE, ShouldNotEqual, r.Summary.WMAPE)
			So(len(r.Rows), ShouldEqual, 3)
			So(r.Rows[1].Errors.AbsError, ShouldEqual, 1)
		})
	})
}

func TestWindowBounds(t *testing.T) {
	Convey("Given points on both window edges", t, func() {
		s := series.Series{at(0, 1), at(5, 2), at(10, 3)}
		w := Window{Start: t0, End: t0.Add(10 * time.Minute)}

		Convey("Then truth excludes start and includes end", func() {
			So(w.Truth(s).Values(), ShouldResemble, []float64{2, 3})
		})

		Convey("Then predictions include start and exclude end", func() {
			So(w.Prediction(s).Values(), ShouldResemble, []float64{1, 2})
		})

		Convey("Then adjacent windows never count a truth row twice", func() {
			next := Window{Start: w.End, End: w.End.Add(10 * time.Minute)}
			long := append(s, at(15, 4), at(20, 5))
			So(len(w.Truth(long))+len(next.Truth(long)), ShouldEqual, 4)
		})
	})

	Convey("Given an inverted window", t, func() {
		_, err := Evaluate(nil, nil, Window{Start: t0, End: t0}, time.Minute)
		So(errors.Is(err, ErrInvalidWindow), ShouldBeTrue)
	})
}

func TestInsufficientOverlap(t *testing.T) {
	Convey("Given a prediction that does not reach any truth row", t, func() {
		truth := series.Series{at(0, 1), at(5, 2)}
		pred := series.Series{at(40, 1)}
		w := Window{Start: t0.Add(-time.Minute), End: t0.Add(time.Hour)}

		_, err := EvaluateModel("LSTM", truth, pred, w, align.DefaultTolerance)

		Convey("Then it fails with an overlap error naming the model", func() {
			So(errors.Is(err, ErrInsufficientOverlap), ShouldBeTrue)
			var oe *OverlapError
			So(errors.As(err, &oe), ShouldBeTrue)
			So(oe.Model, ShouldEqual, "LSTM")
			So(oe.Window, ShouldResemble, w)
		})
	})

	Convey("Given an empty pair", t, func() {
		_, err := EvaluatePair("LSTM", align.Pair{})
		So(errors.Is(err, ErrInsufficientOverlap), ShouldBeTrue)
	})
}

func TestMetricFailuresPropagate(t *testing.T) {
	Convey("Given a window where truth is constant", t, func() {
		truth := series.Series{at(5, 7), at(10, 7)}
		pred := series.Series{at(5, 6), at(10, 8)}
		w := Window{Start: t0, End: t0.Add(time.Hour)}

		_, err := Evaluate(truth, map[string]series.Series{"LSTM": pred}, w, time.Minute)

		Convey("Then the metric error surfaces", func() {
			So(errors.Is(err, metric.ErrInvalidInput), ShouldBeTrue)
		})
	})
}

func TestEvaluateModelWithScorer(t *testing.T) {
	Convey("Given a custom scorer", t, func() {
		truth := series.Series{at(-5, 1), at(0, 2), at(5, 3), at(60, 4)}
		pred := series.Series{at(0, 2), at(5, 4), at(59, 5), at(60, 9)}
		w := Window{Start: t0, End: t0.Add(time.Hour)}

		var seen align.Pair
		calls := 0
		score := func(model string, pair align.Pair) (Report, error) {
			calls++
			seen = pair
			return EvaluatePair(model, pair)
		}

		Convey("When the window overlaps the prediction", func() {
			r, err := EvaluateModelWith(score, "LSTM", truth, pred, w, time.Minute)

			Convey("Then the scorer receives the window-filtered pair", func() {
				So(err, ShouldBeNil)
				So(calls, ShouldEqual, 1)
				So(seen.Len(), ShouldEqual, 2)
				So(seen.Rows[0].Time.Equal(t0.Add(5*time.Minute)), ShouldBeTrue)
				So(seen.Rows[1].Predicted, ShouldEqual, 5.0)
				So(r.Model, ShouldEqual, "LSTM")
			})
		})

		Convey("When nothing aligns", func() {
			_, err := EvaluateModelWith(score, "LSTM", truth, pred, Window{Start: t0.Add(2 * time.Hour), End: t0.Add(3 * time.Hour)}, time.Minute)

			Convey("Then the scorer is never called", func() {
				So(errors.Is(err, ErrInsufficientOverlap), ShouldBeTrue)
				So(calls, ShouldEqual, 0)
			})
		})
	})
}
