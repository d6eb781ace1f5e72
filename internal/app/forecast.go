package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/horizontool/horizon/internal/adapters/repository"
	"github.com/horizontool/horizon/internal/adapters/resolver"
	"github.com/horizontool/horizon/internal/domain/accuracy"
	"github.com/horizontool/horizon/internal/domain/align"
	"github.com/horizontool/horizon/internal/domain/ensemble"
	"github.com/horizontool/horizon/internal/domain/metric"
	"github.com/horizontool/horizon/internal/domain/series"
	"github.com/horizontool/horizon/internal/domain/splice"
	"github.com/horizontool/horizon/internal/domain/types"
	"github.com/horizontool/horizon/pkg/logger"
	"github.com/horizontool/horizon/pkg/metrics"
)

// Forecast builds the dashboard payload of every sensor in ids.
func (s *Service) Forecast(ctx context.Context, ids []string) ([]types.SensorForecast, error) {
	return forEachSensor(ctx, s, "forecast", ids, s.forecastSensor)
}

func (s *Service) forecastSensor(ctx context.Context, h repository.Handle, sensor resolver.Sensor) (types.SensorForecast, error) {
	truth, err := h.Fetch(ctx, sensor.Truth, repository.Latest(max(s.realLimit, s.historyHorizon)))
	if err != nil {
		return types.SensorForecast{}, fmt.Errorf("truth %s: %w", sensor.Truth, err)
	}
	if len(truth) == 0 {
		return types.SensorForecast{}, fmt.Errorf("truth %s: %w", sensor.Truth, repository.ErrEmptySeries)
	}
	cutoff, err := splice.CutoffFrom(truth)
	if err != nil {
		return types.SensorForecast{}, fmt.Errorf("truth %s: %w", sensor.Truth, err)
	}
	history := truth.Head(s.historyHorizon)

	ids := sensor.ModelIDs()
	futures := make(map[string]series.Series, len(ids))
	tables := make(map[string]types.MetricsTable, len(ids))
	for _, m := range sensor.Models {
		pred, err := h.Fetch(ctx, m.Series, repository.Latest(s.predLimit))
		if err != nil {
			return types.SensorForecast{}, fmt.Errorf("model %s: %w", m.ID, err)
		}
		past, future := splice.Splice(pred, cutoff, s.historyHorizon, s.futureLimit)
		futures[m.ID] = future

		report, err := s.evaluate(ctx, sensor.ID, m.ID, align.Align(history, past, s.tolerance))
		switch {
		case err == nil:
			tables[m.ID] = metricsTable(report)
		case unscorable(err):
			s.log().Warn(ctx, "model not scored",
				logger.String("sensor", sensor.ID), logger.String("model", m.ID), logger.Error(err))
			tables[m.ID] = types.MetricsTable{Rows: []types.MetricsRow{}, Text: types.MetricsTitle(m.ID), Error: err.Error()}
		default:
			return types.SensorForecast{}, err
		}
	}

	blend, aligned, err := s.blend(ids, futures, sensor.Weights())
	if err != nil {
		return types.SensorForecast{}, err
	}

	predictions := make(map[string][]types.Point, len(futures))
	for id, f := range futures {
		predictions[id] = types.Points(f)
	}

	return types.SensorForecast{
		Description: types.Description{SensorName: sensor.Name, SensorID: sensor.ID, Measurement: sensor.Measurement},
		MapData: types.MapData{
			Data: types.ChartData{
				LastRealData: types.Points(truth.Head(s.realLimit)),
				Predictions:  predictions,
				Ensemble:     types.Points(blend),
			},
			LastKnownDate: types.Timestamp(cutoff.Time),
			Legend:        types.Legend(ids),
		},
		TableToDownload: downloadTable(blend, aligned),
		MetricTables:    tables,
	}, nil
}

// blend aligns every future segment onto the first model's axis and
// combines them with weights.
func (s *Service) blend(ids []string, futures map[string]series.Series, weights ensemble.Weights) (series.Series, map[string]series.Series, error) {
	if len(ids) == 0 {
		return nil, nil, ensemble.ErrNoSegments
	}
	others := make(map[string]series.Series, len(ids)-1)
	for _, id := range ids[1:] {
		others[id] = futures[id]
	}
	aligned := align.Onto(ids[0], futures[ids[0]], others, s.tolerance)

	blend, err := ensemble.Combine(aligned, weights)
	if err != nil {
		return nil, nil, err
	}
	metrics.RecordEnsembleBuild()
	return blend, aligned, nil
}

// unscorable reports whether err comes from the data rather than the
// infrastructure, so the rest of the dashboard can still be served.
func unscorable(err error) bool {
	return errors.Is(err, accuracy.ErrInsufficientOverlap) ||
		errors.Is(err, metric.ErrInvalidInput) ||
		errors.Is(err, metric.ErrDegenerateInput)
}

func metricsTable(r accuracy.Report) types.MetricsTable {
	rows := make([]types.MetricsRow, len(r.Rows))
	for i, row := range r.Rows {
		rows[i] = types.MetricsRow{
			Time:      types.Timestamp(row.Time),
			Actual:    row.Truth,
			Predicted: row.Predicted,
			MAPE:      metric.Round(row.Errors.APE),
			RMSE:      metric.Round(row.Errors.RootSq),
			MAE:       metric.Round(row.Errors.AbsError),
		}
	}
	return types.MetricsTable{Rows: rows, Summary: r.Summary, Text: types.MetricsTitle(r.Model)}
}

func downloadTable(blend series.Series, aligned map[string]series.Series) []types.DownloadRow {
	out := make([]types.DownloadRow, len(blend))
	for i, p := range blend {
		models := make(map[string]float64, len(aligned))
		for id, s := range aligned {
			models[id] = s[i].Value
		}
		out[i] = types.DownloadRow{Time: types.Timestamp(p.Time), Models: models, Ensemble: p.Value}
	}
	return out
}
