package service

import (
	"context"
	"fmt"
	"time"

	"github.com/horizontool/horizon/internal/adapters/repository"
	"github.com/horizontool/horizon/internal/adapters/resolver"
	"github.com/horizontool/horizon/internal/domain/accuracy"
	"github.com/horizontool/horizon/internal/domain/align"
	"github.com/horizontool/horizon/internal/domain/metric"
	"github.com/horizontool/horizon/internal/domain/types"
)

// AccuracyByPeriod scores every model of every sensor over [start, end].
// Ground truth is taken from (start, end] and predictions from [start, end).
func (s *Service) AccuracyByPeriod(ctx context.Context, ids []string, start, end time.Time) ([]types.SensorAccuracy, error) {
	window := accuracy.Window{Start: start, End: end}
	if err := window.Validate(); err != nil {
		return nil, err
	}
	return forEachSensor(ctx, s, "accuracy", ids, func(ctx context.Context, h repository.Handle, sensor resolver.Sensor) (types.SensorAccuracy, error) {
		return s.accuracySensor(ctx, h, sensor, window)
	})
}

func (s *Service) accuracySensor(ctx context.Context, h repository.Handle, sensor resolver.Sensor, w accuracy.Window) (types.SensorAccuracy, error) {
	truth, err := h.Fetch(ctx, sensor.Truth, repository.Query{From: w.Start, To: w.End, ToInclusive: true})
	if err != nil {
		return types.SensorAccuracy{}, fmt.Errorf("truth %s: %w", sensor.Truth, err)
	}
	score := func(model string, pair align.Pair) (accuracy.Report, error) {
		return s.evaluate(ctx, sensor.ID, model, pair)
	}

	out := types.SensorAccuracy{SensorID: sensor.ID, Models: make(map[string]metric.Set, len(sensor.Models))}
	for _, m := range sensor.Models {
		pred, err := h.Fetch(ctx, m.Series, repository.Query{From: w.Start, To: w.End, FromInclusive: true})
		if err != nil {
			return types.SensorAccuracy{}, fmt.Errorf("model %s: %w", m.ID, err)
		}
		report, err := accuracy.EvaluateModelWith(score, m.ID, truth, pred, w, s.tolerance)
		if err != nil {
			return types.SensorAccuracy{}, err
		}
		out.Models[m.ID] = report.Summary
	}
	return out, nil
}
