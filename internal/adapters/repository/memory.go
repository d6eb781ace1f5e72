package repository

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/horizontool/horizon/internal/domain/series"
	"github.com/horizontool/horizon/pkg/metrics"
)

// MemoryStore keeps every table as an ascending slice. It backs tests and
// local development.
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[string]series.Series
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{tables: make(map[string]series.Series)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// put replaces rows with equal timestamps and keeps the table sorted.
func (s *MemoryStore) put(table string, points series.Series) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byTime := make(map[time.Time]float64, len(s.tables[table])+len(points))
	for _, p := range s.tables[table] {
		byTime[p.Time] = p.Value
	}
	for _, p := range points {
		byTime[series.NormalizeTime(p.Time)] = p.Value
	}
	out := make(series.Series, 0, len(byTime))
	for t, v := range byTime {
		out = append(out, series.TimePoint{Time: t, Value: v})
	}
	slices.SortFunc(out, func(a, b series.TimePoint) int { return a.Time.Compare(b.Time) })
	s.tables[table] = out
}

// Acquire implements Store.
func (s *MemoryStore) Acquire(ctx context.Context) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	metrics.UpdateStoreHandles(1)
	return &memoryHandle{store: s}, nil
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }

// EnsureSeries implements Writer.
func (s *MemoryStore) EnsureSeries(_ context.Context, ref SeriesRef) error {
	if err := ref.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[ref.Table]; !ok {
		s.tables[ref.Table] = series.Series{}
	}
	return nil
}

// Write implements Writer.
func (s *MemoryStore) Write(ctx context.Context, ref SeriesRef, points series.Series) error {
	if err := ref.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.put(ref.Table, points)
	return nil
}

type memoryHandle struct {
	store    *MemoryStore
	released atomic.Bool
}

func (h *memoryHandle) table(ref SeriesRef) (series.Series, error) {
	if h.released.Load() {
		return nil, ErrReleased
	}
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	h.store.mu.RLock()
	defer h.store.mu.RUnlock()
	t, ok := h.store.tables[ref.Table]
	if !ok {
		return nil, ErrUnknownSeries
	}
	return t, nil
}

func (h *memoryHandle) Fetch(ctx context.Context, ref SeriesRef, q Query) (out series.Series, err error) {
	defer func(start time.Time) { observe("fetch", start, err) }(time.Now())
	if err = ctx.Err(); err != nil {
		return nil, err
	}
	t, err := h.table(ref)
	if err != nil {
		return nil, err
	}
	for i := len(t) - 1; i >= 0; i-- {
		if !q.Contains(t[i].Time) {
			continue
		}
		out = append(out, t[i])
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

func (h *memoryHandle) Bounds(ctx context.Context, ref SeriesRef) (b Bounds, err error) {
	defer func(start time.Time) { observe("bounds", start, err) }(time.Now())
	if err = ctx.Err(); err != nil {
		return Bounds{}, err
	}
	t, err := h.table(ref)
	if err != nil {
		return Bounds{}, err
	}
	if len(t) == 0 {
		return Bounds{}, ErrEmptySeries
	}
	return Bounds{Min: t[0].Time, Max: t[len(t)-1].Time}, nil
}

func (h *memoryHandle) Release() error {
	if h.released.Swap(true) {
		return ErrReleased
	}
	metrics.UpdateStoreHandles(-1)
	return nil
}
