// Package seed writes synthetic ground truth and model predictions for a
// sensor, so the service can be exercised without a production feed.
package seed

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/horizontool/horizon/internal/adapters/repository"
	"github.com/horizontool/horizon/internal/adapters/resolver"
	"github.com/horizontool/horizon/internal/domain/series"
	"github.com/horizontool/horizon/pkg/logger"
)

// Default generator settings.
const (
	DefaultStep    = 5 * time.Minute
	DefaultHistory = 7 * 24 * time.Hour
	DefaultFuture  = 12
	DefaultBase    = 500.0
	DefaultDaily   = 120.0
	DefaultNoise   = 15.0
)

// ErrInvalidConfig reports unusable generator settings.
var ErrInvalidConfig = errors.New("invalid seed config")

// Config drives one seeding run.
type Config struct {
	// End is the newest ground truth timestamp; predictions extend Future
	// steps past it.
	End     time.Time
	History time.Duration
	Step    time.Duration
	Future  int

	// Base, Daily and Noise shape the ground truth: a daily sine of
	// amplitude Daily around Base plus Gaussian noise.
	Base  float64
	Daily float64
	Noise float64

	// Seed makes runs reproducible.
	Seed uint64
}

// Defaults returns a Config ending at the current five minute boundary.
func Defaults() Config {
	return Config{
		End:     time.Now().UTC().Truncate(DefaultStep),
		History: DefaultHistory,
		Step:    DefaultStep,
		Future:  DefaultFuture,
		Base:    DefaultBase,
		Daily:   DefaultDaily,
		Noise:   DefaultNoise,
		Seed:    1,
	}
}

func (c Config) validate() error {
	switch {
	case c.End.IsZero():
		return fmt.Errorf("%w: end must be set", ErrInvalidConfig)
	case c.Step <= 0:
		return fmt.Errorf("%w: step must be positive", ErrInvalidConfig)
	case c.History < c.Step:
		return fmt.Errorf("%w: history shorter than one step", ErrInvalidConfig)
	case c.Future < 0:
		return fmt.Errorf("%w: future must not be negative", ErrInvalidConfig)
	case c.Noise < 0:
		return fmt.Errorf("%w: noise must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Stats summarizes a run.
type Stats struct {
	RunID  string
	Truth  int
	Models map[string]int
}

// Generate builds the ground truth and one prediction series per model.
// Each model follows the truth with its own bias and noise; the first
// model tracks it closest.
func Generate(sensor resolver.Sensor, cfg Config) (truth series.Series, predictions map[string]series.Series, err error) {
	if err := cfg.validate(); err != nil {
		return nil, nil, err
	}
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)) //nolint:gosec // synthetic data

	n := int(cfg.History / cfg.Step)
	start := cfg.End.Add(-time.Duration(n-1) * cfg.Step)
	total := n + cfg.Future

	signal := make([]float64, total)
	for i := range signal {
		t := start.Add(time.Duration(i) * cfg.Step)
		phase := 2 * math.Pi * float64(t.Hour()*60+t.Minute()) / (24 * 60)
		signal[i] = cfg.Base + cfg.Daily*math.Sin(phase) + rng.NormFloat64()*cfg.Noise
	}

	truth = make(series.Series, n)
	for i := range truth {
		truth[i] = series.TimePoint{Time: start.Add(time.Duration(i) * cfg.Step), Value: signal[i]}
	}

	predictions = make(map[string]series.Series, len(sensor.Models))
	for k, m := range sensor.Models {
		bias := float64(k) * cfg.Noise / 2
		spread := cfg.Noise * (0.5 + float64(k)/2)
		p := make(series.Series, total)
		for i := range p {
			p[i] = series.TimePoint{
				Time:  start.Add(time.Duration(i) * cfg.Step),
				Value: signal[i] + bias + rng.NormFloat64()*spread,
			}
		}
		predictions[m.ID] = p
	}
	return truth, predictions, nil
}

// Run generates data for sensor and writes it through w, one series per
// goroutine.
func Run(ctx context.Context, w repository.Writer, sensor resolver.Sensor, cfg Config) (Stats, error) {
	truth, predictions, err := Generate(sensor, cfg)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{RunID: uuid.NewString(), Truth: len(truth), Models: make(map[string]int, len(predictions))}
	log := logger.Get().Named("seed").With(logger.String("run_id", stats.RunID), logger.String("sensor", sensor.ID))

	write := func(ref repository.SeriesRef, points series.Series) error {
		if err := w.EnsureSeries(ctx, ref); err != nil {
			return fmt.Errorf("ensure %s: %w", ref, err)
		}
		if err := w.Write(ctx, ref, points); err != nil {
			return fmt.Errorf("write %s: %w", ref, err)
		}
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return write(sensor.Truth, truth) })
	for _, m := range sensor.Models {
		points := predictions[m.ID]
		stats.Models[m.ID] = len(points)
		g.Go(func() error { return write(m.Series, points) })
	}
	if err := g.Wait(); err != nil {
		log.Error(ctx, "seeding failed", logger.Error(err))
		return Stats{}, err
	}

	log.Info(ctx, "seeded sensor",
		logger.Int("truth_rows", stats.Truth),
		logger.Int("models", len(stats.Models)),
		logger.Time("end", cfg.End),
	)
	return stats, nil
}
