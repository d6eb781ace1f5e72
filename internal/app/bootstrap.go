package service

import (
	"context"
	"fmt"

	"github.com/horizontool/horizon/internal/adapters/repository"
	"github.com/horizontool/horizon/internal/adapters/resolver"
	"github.com/horizontool/horizon/internal/config"
	"github.com/horizontool/horizon/internal/seed"
	"github.com/horizontool/horizon/pkg/logger"
)

// OpenStore opens the store described by cfg and wraps it in a circuit
// breaker. Without a DSN it returns an in-memory store seeded with
// synthetic data for every configured sensor.
func OpenStore(ctx context.Context, cfg *config.Config, res *resolver.StaticResolver) (*repository.ResilientStore, error) {
	var inner repository.Store
	if cfg.Database.DSN != "" {
		pg, err := repository.OpenPostgres(ctx, repository.PostgresConfig{
			DSN:             cfg.Database.DSN,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
			QueryTimeout:    cfg.Database.QueryTimeout,
		})
		if err != nil {
			return nil, err
		}
		inner = pg
	} else {
		mem := repository.NewMemoryStore()
		for _, id := range res.IDs() {
			sensor, err := res.Resolve(ctx, id)
			if err != nil {
				return nil, err
			}
			if _, err := seed.Run(ctx, mem, sensor, seed.Defaults()); err != nil {
				return nil, fmt.Errorf("seeding %s: %w", id, err)
			}
		}
		logger.Get().Named("service").Warn(ctx, "no database configured; serving synthetic in-memory data",
			logger.Int("sensors", len(res.IDs())))
		inner = mem
	}

	return repository.NewResilientStore(inner, repository.BreakerConfig{
		MaxRequests:      cfg.Breaker.MaxRequests,
		Interval:         cfg.Breaker.Interval,
		Timeout:          cfg.Breaker.Timeout,
		FailureThreshold: cfg.Breaker.FailureThreshold,
	}), nil
}

// Options translates cfg into service options.
func Options(cfg *config.Config) []Option {
	return []Option{
		WithWorkerCount(cfg.WorkerCount),
		WithQueueSize(cfg.QueueSize),
		WithParallelism(cfg.Parallelism),
		WithHistoryHorizon(cfg.Forecast.HistoryHorizon),
		WithRealLimit(cfg.Forecast.RealLimit),
		WithPredictionLimit(cfg.Forecast.PredictionLimit),
		WithFutureLimit(cfg.Forecast.FutureLimit),
		WithTolerance(cfg.Forecast.Tolerance),
		WithDefaultWindow(cfg.Forecast.DefaultWindow),
	}
}
