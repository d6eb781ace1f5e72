package ensemble

import (
	"errors"
	"testing"
	"time"

	"github.com/horizontool/horizon/internal/domain/series"
	. "github.com/smartystreets/goconvey/convey"
)

var t0 = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func seg(vals ...float64) series.Series {
	s := make(series.Series, len(vals))
	for i, v := range vals {
		s[i] = series.TimePoint{Time: t0.Add(time.Duration(i) * 5 * time.Minute), Value: v}
	}
	return s
}

func TestCombine(t *testing.T) {
	Convey("Given two mirrored segments with equal weights", t, func() {
		out, err := Combine(map[string]series.Series{"m1": seg(1, 2, 3), "m2": seg(3, 2, 1)}, Weights{"m1": 0.5, "m2": 0.5})

		Convey("Then the blend is flat", func() {
			So(err, ShouldBeNil)
			So(out.Values(), ShouldResemble, []float64{2, 2, 2})
			So(out[2].Time.Equal(t0.Add(10*time.Minute)), ShouldBeTrue)
		})
	})

	Convey("Given weights that do not sum to one", t, func() {
		out, err := Combine(map[string]series.Series{"a": seg(0, 10), "b": seg(10, 20)}, Weights{"a": 3, "b": 1})

		Convey("Then only their ratio matters", func() {
			So(err, ShouldBeNil)
			So(out.Values(), ShouldResemble, []float64{2.5, 12.5})
		})
	})

	Convey("Given EqualWeights for three models", t, func() {
		w := EqualWeights("a", "b", "c")
		out, err := Combine(map[string]series.Series{"a": seg(3), "b": seg(6), "c": seg(9)}, w)
		So(err, ShouldBeNil)
		So(out[0].Value, ShouldAlmostEqual, 6, 1e-12)
	})
}

func TestCombineFailures(t *testing.T) {
	Convey("Given segments of different length", t, func() {
		_, err := Combine(map[string]series.Series{"a": seg(1, 2), "b": seg(1)}, EqualWeights("a", "b"))

		Convey("Then it fails with a shape error", func() {
			So(errors.Is(err, ErrShapeMismatch), ShouldBeTrue)
			var se *ShapeError
			So(errors.As(err, &se), ShouldBeTrue)
			So(se.Model, ShouldEqual, "b")
			So(se.Index, ShouldEqual, -1)
		})
	})

	Convey("Given segments with shifted timestamps", t, func() {
		b := seg(1, 2)
		b[1].Time = b[1].Time.Add(time.Minute)
		_, err := Combine(map[string]series.Series{"a": seg(1, 2), "b": b}, EqualWeights("a", "b"))
		var se *ShapeError
		So(errors.As(err, &se), ShouldBeTrue)
		So(se.Index, ShouldEqual, 1)
	})

	Convey("Given bad weights", t, func() {
		segs := map[string]series.Series{"a": seg(1), "b": seg(2)}
		for _, w := range []Weights{{"a": 1}, {"a": -1, "b": 2}, {"a": 0, "b": 0}} {
			_, err := Combine(segs, w)
			So(errors.Is(err, ErrInvalidWeights), ShouldBeTrue)
		}
	})

	Convey("Given no segments", t, func() {
		_, err := Combine(nil, Weights{})
		So(errors.Is(err, ErrNoSegments), ShouldBeTrue)
	})
}
