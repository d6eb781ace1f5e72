// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/horizontool/horizon/internal/domain/accuracy"
	"github.com/horizontool/horizon/internal/domain/align"
)

// Task is one metric evaluation handed to the compute pool.
type Task struct {
	ID       string     // unique id for log correlation
	SensorID string     // sensor the pair belongs to
	Model    string     // model id, e.g. "XGBoost"
	Pair     align.Pair // aligned ground truth and prediction
	Enqueued time.Time
	// Reply receives exactly one Result. It must be buffered so workers never block.
	Reply chan Result
}

// NewTask builds a task with a one-slot reply channel.
func NewTask(id, sensorID, modelID string, pair align.Pair) Task {
	return Task{
		ID:       id,
		SensorID: sensorID,
		Model:    modelID,
		Pair:     pair,
		Enqueued: time.Now(),
		Reply:    make(chan Result, 1),
	}
}

// Result is the outcome of a Task.
type Result struct {
	TaskID string
	Report accuracy.Report
	Err    error
}
