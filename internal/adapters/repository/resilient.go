package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/horizontool/horizon/internal/domain/series"
	"github.com/horizontool/horizon/pkg/logger"
	"github.com/horizontool/horizon/pkg/metrics"
)

// BreakerConfig configures the circuit breaker of a ResilientStore.
type BreakerConfig struct {
	// Name identifies the breaker in logs and metrics.
	Name string
	// MaxRequests is the number of requests allowed in half-open state.
	MaxRequests uint32
	// Interval is the cyclic reset period for counts in closed state.
	Interval time.Duration
	// Timeout is the time spent open before trying half-open.
	Timeout time.Duration
	// FailureThreshold is the number of consecutive failures that opens the breaker.
	FailureThreshold uint32
}

// ResilientStore guards another Store with a circuit breaker. Acquire,
// Fetch and Bounds run through the breaker; Release always reaches the
// inner handle.
type ResilientStore struct {
	inner Store
	cb    *gobreaker.CircuitBreaker[any]
}

// NewResilientStore wraps inner.
func NewResilientStore(inner Store, cfg BreakerConfig) *ResilientStore {
	if cfg.Name == "" {
		cfg.Name = "timeseries"
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	log := logger.Get().Named("store-breaker")

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			// caller-side outcomes say nothing about store health
			return err == nil ||
				errors.Is(err, ErrEmptySeries) ||
				errors.Is(err, ErrUnknownSeries) ||
				errors.Is(err, ErrInvalidRef) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.UpdateBreakerState(name, breakerState(to))
			log.Warn(context.Background(), "breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		},
	}
	metrics.UpdateBreakerState(cfg.Name, metrics.BreakerClosed)

	return &ResilientStore{inner: inner, cb: gobreaker.NewCircuitBreaker[any](settings)}
}

func breakerState(s gobreaker.State) int {
	switch s {
	case gobreaker.StateOpen:
		return metrics.BreakerOpen
	case gobreaker.StateHalfOpen:
		return metrics.BreakerHalfOpen
	default:
		return metrics.BreakerClosed
	}
}

// State exposes the breaker state for stats.
func (s *ResilientStore) State() string { return s.cb.State().String() }

func (s *ResilientStore) execute(fn func() (any, error)) (any, error) {
	v, err := s.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return v, err
}

// Acquire implements Store.
func (s *ResilientStore) Acquire(ctx context.Context) (Handle, error) {
	v, err := s.execute(func() (any, error) { return s.inner.Acquire(ctx) })
	if err != nil {
		return nil, err
	}
	return &resilientHandle{store: s, inner: v.(Handle)}, nil
}

// Close implements Store.
func (s *ResilientStore) Close() error { return s.inner.Close() }

type resilientHandle struct {
	store *ResilientStore
	inner Handle
}

func (h *resilientHandle) Fetch(ctx context.Context, ref SeriesRef, q Query) (series.Series, error) {
	v, err := h.store.execute(func() (any, error) { return h.inner.Fetch(ctx, ref, q) })
	if err != nil {
		return nil, err
	}
	return v.(series.Series), nil
}

func (h *resilientHandle) Bounds(ctx context.Context, ref SeriesRef) (Bounds, error) {
	v, err := h.store.execute(func() (any, error) { return h.inner.Bounds(ctx, ref) })
	if err != nil {
		return Bounds{}, err
	}
	return v.(Bounds), nil
}

func (h *resilientHandle) Release() error { return h.inner.Release() }
