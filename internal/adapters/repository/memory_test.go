package repository

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/horizontool/horizon/internal/domain/series"
	"github.com/horizontool/horizon/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

var t0 = time.Date(2025, 7, 12, 10, 0, 0, 0, time.UTC)

func init() {
	_ = logger.Init()
}

func every5(n int, value func(i int) float64) series.Series {
	s := make(series.Series, n)
	for i := range s {
		s[i] = series.TimePoint{Time: t0.Add(time.Duration(i) * 5 * time.Minute), Value: value(i)}
	}
	return s
}

func TestMemoryStore(t *testing.T) {
	Convey("Given a memory store with one table of ten rows", t, func() {
		ctx := context.Background()
		ref := SeriesRef{Table: "load_consumption"}
		store := NewMemoryStore(WithSeries(ref.Table, every5(10, func(i int) float64 { return float64(i) })))
		h, err := store.Acquire(ctx)
		So(err, ShouldBeNil)
		defer h.Release()

		Convey("When fetching the latest rows", func() {
			got, err := h.Fetch(ctx, ref, Latest(3))

			Convey("Then they come newest first", func() {
				So(err, ShouldBeNil)
				So(got.Values(), ShouldResemble, []float64{9, 8, 7})
			})
		})

		Convey("When fetching with asymmetric bounds", func() {
			q := Query{From: t0.Add(10 * time.Minute), To: t0.Add(20 * time.Minute), ToInclusive: true}
			got, err := h.Fetch(ctx, ref, q)

			Convey("Then the exclusive start is skipped and the inclusive end kept", func() {
				So(err, ShouldBeNil)
				So(got.Values(), ShouldResemble, []float64{4, 3})
			})
		})

		Convey("When reading bounds", func() {
			b, err := h.Bounds(ctx, ref)
			So(err, ShouldBeNil)
			So(b.Min.Equal(t0), ShouldBeTrue)
			So(b.Max.Equal(t0.Add(45*time.Minute)), ShouldBeTrue)
		})

		Convey("When the table is unknown or empty", func() {
			_, err := h.Fetch(ctx, SeriesRef{Table: "missing"}, Latest(1))
			So(errors.Is(err, ErrUnknownSeries), ShouldBeTrue)

			So(store.EnsureSeries(ctx, SeriesRef{Table: "empty"}), ShouldBeNil)
			_, err = h.Bounds(ctx, SeriesRef{Table: "empty"})
			So(errors.Is(err, ErrEmptySeries), ShouldBeTrue)

			_, err = h.Fetch(ctx, SeriesRef{}, Latest(1))
			So(errors.Is(err, ErrInvalidRef), ShouldBeTrue)
		})

		Convey("When writing overlapping points", func() {
			So(store.Write(ctx, ref, series.Series{{Time: t0, Value: 100}, {Time: t0.Add(time.Hour), Value: math.NaN()}}), ShouldBeNil)
			got, err := h.Fetch(ctx, ref, Query{})

			Convey("Then equal timestamps are replaced and missing values kept as NaN", func() {
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, 11)
				So(math.IsNaN(got[0].Value), ShouldBeTrue)
				So(got[len(got)-1].Value, ShouldEqual, 100)
			})
		})
	})

	Convey("Given a released handle", t, func() {
		store := NewMemoryStore()
		h, _ := store.Acquire(context.Background())
		So(h.Release(), ShouldBeNil)

		Convey("Then it can no longer be used or released again", func() {
			_, err := h.Fetch(context.Background(), SeriesRef{Table: "x"}, Latest(1))
			So(errors.Is(err, ErrReleased), ShouldBeTrue)
			So(errors.Is(h.Release(), ErrReleased), ShouldBeTrue)
		})
	})
}

func TestQueryContains(t *testing.T) {
	Convey("Given open and closed bounds", t, func() {
		q := Query{From: t0, To: t0.Add(time.Hour), FromInclusive: true}
		So(q.Contains(t0), ShouldBeTrue)
		So(q.Contains(t0.Add(time.Hour)), ShouldBeFalse)
		So(Query{}.Contains(t0), ShouldBeTrue)
		So(Query{To: t0}.Contains(t0.Add(-time.Second)), ShouldBeTrue)
	})
}
