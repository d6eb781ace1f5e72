// Package resolver maps sensor ids to the stored series that describe them.
package resolver

import (
	"context"
	"fmt"
	"sort"

	"github.com/horizontool/horizon/internal/adapters/repository"
	"github.com/horizontool/horizon/internal/config"
	"github.com/horizontool/horizon/internal/domain/ensemble"
)

// ModelRef names one model's prediction series and its ensemble weight.
type ModelRef struct {
	ID     string
	Series repository.SeriesRef
	Weight float64
}

// Sensor is everything needed to evaluate one sensor.
type Sensor struct {
	ID          string
	Name        string
	Measurement string
	Truth       repository.SeriesRef
	Models      []ModelRef
}

// ModelIDs returns the model ids in configured order.
func (s Sensor) ModelIDs() []string {
	ids := make([]string, len(s.Models))
	for i, m := range s.Models {
		ids[i] = m.ID
	}
	return ids
}

// Weights returns the ensemble weights keyed by model id.
func (s Sensor) Weights() ensemble.Weights {
	w := make(ensemble.Weights, len(s.Models))
	for _, m := range s.Models {
		w[m.ID] = m.Weight
	}
	return w
}

// Resolver resolves sensor ids.
type Resolver interface {
	Resolve(ctx context.Context, sensorID string) (Sensor, error)
}

// StaticResolver serves a fixed sensor table.
type StaticResolver struct {
	sensors map[string]Sensor
}

// NewStaticResolver builds a resolver from configured sensors.
func NewStaticResolver(cfg map[string]config.SensorConfig) *StaticResolver {
	r := &StaticResolver{sensors: make(map[string]Sensor, len(cfg))}
	for id, sc := range cfg {
		column := sc.ValueColumn
		if column == "" {
			column = config.DefaultValueColumn
		}
		s := Sensor{
			ID:          id,
			Name:        sc.Name,
			Measurement: sc.Measurement,
			Truth:       repository.SeriesRef{Table: sc.Truth, TimeColumn: sc.TimeColumn, ValueColumn: column}.Normalize(),
			Models:      make([]ModelRef, 0, len(sc.Models)),
		}
		if s.Name == "" {
			s.Name = id
		}
		for _, m := range sc.Models {
			mc := m.ValueColumn
			if mc == "" {
				mc = column
			}
			s.Models = append(s.Models, ModelRef{
				ID:     m.ID,
				Series: repository.SeriesRef{Table: m.Series, TimeColumn: sc.TimeColumn, ValueColumn: mc}.Normalize(),
				Weight: m.Weight,
			})
		}
		r.sensors[id] = s
	}
	return r
}

// Resolve implements Resolver.
func (r *StaticResolver) Resolve(ctx context.Context, sensorID string) (Sensor, error) {
	if err := ctx.Err(); err != nil {
		return Sensor{}, err
	}
	s, ok := r.sensors[sensorID]
	if !ok {
		return Sensor{}, fmt.Errorf("%w: %q", ErrUnknownSensor, sensorID)
	}
	return s, nil
}

// IDs lists the known sensor ids in sorted order.
func (r *StaticResolver) IDs() []string {
	ids := make([]string, 0, len(r.sensors))
	for id := range r.sensors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
