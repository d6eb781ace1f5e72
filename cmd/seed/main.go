// Command seed writes synthetic ground truth and model predictions for the
// configured sensors into the PostgreSQL store.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/horizontool/horizon/internal/adapters/repository"
	"github.com/horizontool/horizon/internal/adapters/resolver"
	"github.com/horizontool/horizon/internal/config"
	"github.com/horizontool/horizon/internal/seed"
	"github.com/horizontool/horizon/pkg/logger"
)

func main() {
	defaults := seed.Defaults()
	var (
		sensorID = flag.String("sensor", "", "Sensor id to seed (default: every configured sensor)")
		history  = flag.Duration("history", defaults.History, "Length of ground truth history")
		step     = flag.Duration("step", defaults.Step, "Sampling interval")
		future   = flag.Int("future", defaults.Future, "Prediction rows past the newest ground truth")
		noise    = flag.Float64("noise", defaults.Noise, "Standard deviation of the ground truth noise")
		seedVal  = flag.Uint64("seed", defaults.Seed, "Random seed")
		end      = flag.String("end", "", "Newest ground truth timestamp (default: now)")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Get().Named("seed")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatal(ctx, "failed to load config", logger.Error(err))
	}
	if cfg.Database.DSN == "" {
		log.Fatal(ctx, "HORIZON_DATABASE__DSN must be set to seed a database")
	}

	run := defaults
	run.History, run.Step, run.Future, run.Noise, run.Seed = *history, *step, *future, *noise, *seedVal
	if *end != "" {
		t, err := time.Parse(time.RFC3339, *end)
		if err != nil {
			log.Fatal(ctx, "invalid -end; must be RFC3339", logger.Error(err))
		}
		run.End = t.UTC()
	}

	store, err := repository.OpenPostgres(ctx, repository.PostgresConfig{
		DSN:          cfg.Database.DSN,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
		QueryTimeout: cfg.Database.QueryTimeout,
	})
	if err != nil {
		log.Fatal(ctx, "failed to open store", logger.Error(err))
	}
	defer func() { _ = store.Close() }()

	res := resolver.NewStaticResolver(cfg.Sensors)
	ids := res.IDs()
	if *sensorID != "" {
		ids = []string{*sensorID}
	}

	for _, id := range ids {
		sensor, err := res.Resolve(ctx, id)
		if err != nil {
			log.Error(ctx, "skipping sensor", logger.String("sensor", id), logger.Error(err))
			continue
		}
		stats, err := seed.Run(ctx, store, sensor, run)
		if err != nil {
			log.Error(ctx, "seeding failed", logger.String("sensor", id), logger.Error(err))
			continue
		}
		log.Info(ctx, "sensor seeded",
			logger.String("sensor", id),
			logger.String("run_id", stats.RunID),
			logger.Int("truth_rows", stats.Truth),
		)
	}
}
