// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/horizontool/horizon/internal/adapters/mq/queue"
	workerpool "github.com/horizontool/horizon/internal/adapters/mq/worker"
	"github.com/horizontool/horizon/internal/adapters/repository"
	"github.com/horizontool/horizon/internal/adapters/resolver"
	"github.com/horizontool/horizon/internal/domain/accuracy"
	"github.com/horizontool/horizon/internal/domain/align"
	"github.com/horizontool/horizon/internal/domain/model"
	"github.com/horizontool/horizon/internal/domain/splice"
	"github.com/horizontool/horizon/pkg/logger"
	"github.com/horizontool/horizon/pkg/metrics"
)

// Service implements the API dependencies for the accuracy engine.
type Service struct {
	mu sync.RWMutex

	// Core components
	store    repository.Store
	resolver resolver.Resolver
	queue    *queue.InMemoryQueue
	pool     *workerpool.Pool

	// Configuration
	workerCount    int
	queueSize      int
	parallelism    int
	historyHorizon int
	realLimit      int
	predLimit      int
	futureLimit    int
	tolerance      time.Duration
	defaultWindow  time.Duration

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of compute workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the compute queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithParallelism caps how many sensors one request processes at once.
func WithParallelism(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.parallelism = n
		}
	}
}

// WithHistoryHorizon sets how many past rows are kept and scored per model.
func WithHistoryHorizon(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.historyHorizon = n
		}
	}
}

// WithRealLimit caps the last real segment of the chart.
func WithRealLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.realLimit = n
		}
	}
}

// WithPredictionLimit caps the rows fetched per prediction series.
func WithPredictionLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.predLimit = n
		}
	}
}

// WithFutureLimit caps each future segment. Zero keeps every row.
func WithFutureLimit(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.futureLimit = n
		}
	}
}

// WithTolerance sets the alignment tolerance.
func WithTolerance(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.tolerance = d
		}
	}
}

// WithDefaultWindow sets the length of the default evaluation window.
func WithDefaultWindow(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.defaultWindow = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service reading from store and resolving sensors with res.
func New(store repository.Store, res resolver.Resolver, opts ...Option) *Service {
	s := &Service{
		store:          store,
		resolver:       res,
		workerCount:    runtime.NumCPU(),
		queueSize:      1024,
		parallelism:    runtime.NumCPU(),
		historyHorizon: splice.DefaultHistoryHorizon,
		realLimit:      300,
		predLimit:      1000,
		futureLimit:    splice.DefaultFutureLimit,
		tolerance:      align.DefaultTolerance,
		defaultWindow:  24 * time.Hour,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start creates the compute queue and starts the worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting accuracy service...")

	s.queue = queue.NewInMemoryQueue(
		queue.WithCapacity(s.queueSize),
		queue.WithBufferSize(s.queueSize),
	)
	s.pool = workerpool.NewPool(s.workerCount, s.queue, workerpool.PairEvaluator)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "accuracy service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("parallelism", s.parallelism),
	)

	return nil
}

// Stop drains the worker pool and closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping accuracy service...")

	if s.pool != nil {
		if err := s.pool.Shutdown(ctx); err != nil {
			s.logger.Error(ctx, "worker pool shutdown failed", logger.Error(err))
		}
	}

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error(ctx, "closing store failed", logger.Error(err))
		}
	}

	s.started = false
	s.logger.Info(ctx, "accuracy service stopped")
}

// evaluate scores a pair on the worker pool, or inline when the pool is
// unavailable or refuses the task.
func (s *Service) evaluate(ctx context.Context, sensorID, modelID string, pair align.Pair) (accuracy.Report, error) {
	metrics.RecordAlignment(pair.Len(), pair.Dropped)

	s.mu.RLock()
	pool, started := s.pool, s.started
	s.mu.RUnlock()

	if started {
		report, err := pool.Do(ctx, model.NewTask(uuid.NewString(), sensorID, modelID, pair))
		if !errors.Is(err, queue.ErrRejected) {
			return report, err
		}
		metrics.RecordInlineFallback()
	}

	start := time.Now()
	report, err := accuracy.EvaluatePair(modelID, pair)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.RecordEvaluation(modelID, outcome, float64(time.Since(start).Microseconds())/1000)
	return report, err
}

// sensorFunc processes one resolved sensor with its own store handle.
type sensorFunc[T any] func(ctx context.Context, h repository.Handle, sensor resolver.Sensor) (T, error)

// forEachSensor resolves every id and runs fn concurrently, at most
// parallelism at a time. Results keep the order of ids. The first failure
// cancels the remaining sensors and is returned.
func forEachSensor[T any](ctx context.Context, s *Service, op string, ids []string, fn sensorFunc[T]) ([]T, error) {
	out := make([]T, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)

	for i, id := range ids {
		g.Go(func() error {
			sensor, err := s.resolver.Resolve(gctx, id)
			if err != nil {
				return err
			}
			h, err := s.store.Acquire(gctx)
			if err != nil {
				return fmt.Errorf("sensor %q: %w", id, err)
			}
			defer func() {
				if rerr := h.Release(); rerr != nil {
					s.log().Warn(gctx, "releasing store handle failed",
						logger.String("sensor", id), logger.Error(rerr))
				}
			}()

			v, err := fn(gctx, h, sensor)
			if err != nil {
				return fmt.Errorf("sensor %q: %w", id, err)
			}
			out[i] = v
			metrics.RecordSensorProcessed(op)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		metrics.RecordErrorByComponent("service", op)
		return nil, err
	}
	return out, nil
}

func (s *Service) log() logger.Logger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.logger == nil {
		return logger.Get().Named("service")
	}
	return s.logger
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":        s.started,
		"workerCount":    s.workerCount,
		"queueSize":      s.queueSize,
		"parallelism":    s.parallelism,
		"historyHorizon": s.historyHorizon,
		"tolerance":      s.tolerance.String(),
	}

	if s.started {
		queueLen := s.queue.Len(context.Background())
		stats["queueLength"] = queueLen
		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateWorkerCount(s.pool.Size())
	}
	if b, ok := s.store.(interface{ State() string }); ok {
		stats["storeBreaker"] = b.State()
	}
	if l, ok := s.resolver.(interface{ IDs() []string }); ok {
		stats["sensors"] = l.IDs()
	}

	return stats
}
