package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/horizontool/horizon/internal/adapters/repository"
	"github.com/horizontool/horizon/internal/adapters/resolver"
	"github.com/horizontool/horizon/internal/domain/types"
)

// MetricDates reports, per sensor id, the period its models can be scored
// over and the default window ending at the newest ground truth.
func (s *Service) MetricDates(ctx context.Context, ids []string) (map[string]types.MetricDates, error) {
	dates, err := forEachSensor(ctx, s, "metric_dates", ids, s.sensorDates)
	if err != nil {
		return nil, err
	}
	out := make(map[string]types.MetricDates, len(ids))
	for i, id := range ids {
		out[id] = dates[i]
	}
	return out, nil
}

// sensorDates takes the earliest date from the models' oldest predictions.
// Models without rows are skipped; when none has rows the oldest ground
// truth is used instead.
func (s *Service) sensorDates(ctx context.Context, h repository.Handle, sensor resolver.Sensor) (types.MetricDates, error) {
	tb, err := h.Bounds(ctx, sensor.Truth)
	if err != nil {
		return types.MetricDates{}, fmt.Errorf("truth %s: %w", sensor.Truth, err)
	}

	var earliest time.Time
	for _, m := range sensor.Models {
		b, err := h.Bounds(ctx, m.Series)
		if errors.Is(err, repository.ErrEmptySeries) {
			continue
		}
		if err != nil {
			return types.MetricDates{}, fmt.Errorf("model %s: %w", m.ID, err)
		}
		if earliest.IsZero() || b.Min.Before(earliest) {
			earliest = b.Min
		}
	}
	if earliest.IsZero() {
		earliest = tb.Min
	}

	return types.MetricDates{
		EarliestDate:     types.Timestamp(earliest),
		MaxDate:          types.Timestamp(tb.Max),
		StartDefaultDate: types.Timestamp(tb.Max.Add(-s.defaultWindow)),
		EndDefaultDate:   types.Timestamp(tb.Max),
	}, nil
}
