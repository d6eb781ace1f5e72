// Package repository reads and writes the time series the accuracy engine consumes.
//
// A Store hands out Handles; each request acquires its own Handle and
// releases it when done, so concurrent requests never share a connection.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/horizontool/horizon/internal/domain/series"
	"github.com/horizontool/horizon/pkg/metrics"
)

// Default column names of the reference schema.
const (
	DefaultTimeColumn = "datetime"
)

// SeriesRef locates one series: a table with a time column and a value column.
type SeriesRef struct {
	Table       string
	TimeColumn  string
	ValueColumn string
}

// Normalize fills empty columns with defaults: the time column with
// DefaultTimeColumn, the value column with the table name.
func (r SeriesRef) Normalize() SeriesRef {
	if r.TimeColumn == "" {
		r.TimeColumn = DefaultTimeColumn
	}
	if r.ValueColumn == "" {
		r.ValueColumn = r.Table
	}
	return r
}

// Validate rejects references without a table.
func (r SeriesRef) Validate() error {
	if r.Table == "" {
		return fmt.Errorf("%w: empty table", ErrInvalidRef)
	}
	return nil
}

func (r SeriesRef) String() string { return r.Table + "." + r.ValueColumn }

// Query bounds a fetch. A zero From or To leaves that side open.
// Limit <= 0 returns every matching row.
type Query struct {
	From          time.Time
	To            time.Time
	FromInclusive bool
	ToInclusive   bool
	Limit         int
}

// Latest asks for the newest n rows.
func Latest(n int) Query { return Query{Limit: n} }

// Contains reports whether t satisfies the time bounds of q.
func (q Query) Contains(t time.Time) bool {
	if !q.From.IsZero() {
		if t.Before(q.From) || (!q.FromInclusive && t.Equal(q.From)) {
			return false
		}
	}
	if !q.To.IsZero() {
		if t.After(q.To) || (!q.ToInclusive && t.Equal(q.To)) {
			return false
		}
	}
	return true
}

// Bounds is the time range covered by a series.
type Bounds struct {
	Min time.Time
	Max time.Time
}

// Handle is a scoped view of the store. It must be released exactly once.
type Handle interface {
	// Fetch returns rows matching q, newest first. Missing values are NaN.
	Fetch(ctx context.Context, ref SeriesRef, q Query) (series.Series, error)
	// Bounds returns the oldest and newest timestamps. ErrEmptySeries if there are none.
	Bounds(ctx context.Context, ref SeriesRef) (Bounds, error)
	// Release returns the handle's resources to the store.
	Release() error
}

// Store hands out handles.
type Store interface {
	Acquire(ctx context.Context) (Handle, error)
	Close() error
}

// Writer creates and fills series. The seeder uses it.
type Writer interface {
	EnsureSeries(ctx context.Context, ref SeriesRef) error
	Write(ctx context.Context, ref SeriesRef, points series.Series) error
}

// observe records latency and failures of one store operation.
func observe(op string, start time.Time, err error) {
	metrics.RecordStoreQuery(op, float64(time.Since(start).Microseconds())/1000)
	if err != nil {
		metrics.RecordStoreError(op)
	}
}
