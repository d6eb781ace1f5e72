// Package worker runs metric evaluations off the request goroutines.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/horizontool/horizon/internal/adapters/mq/queue"
	"github.com/horizontool/horizon/internal/domain/accuracy"
	"github.com/horizontool/horizon/internal/domain/model"
	"github.com/horizontool/horizon/pkg/logger"
	"github.com/horizontool/horizon/pkg/metrics"
)

// Default worker configuration constants.
const (
	workerShutdownTimeout = 5 * time.Second
	poolShutdownTimeout   = 30 * time.Second
)

// Task abstracts what workers read off the queue.
type Task = model.Task

// Evaluator scores the aligned pair carried by a task.
type Evaluator interface {
	Evaluate(ctx context.Context, t Task) (accuracy.Report, error)
}

// EvaluatorFunc adapts a function to Evaluator.
type EvaluatorFunc func(ctx context.Context, t Task) (accuracy.Report, error)

// Evaluate implements Evaluator.
func (f EvaluatorFunc) Evaluate(ctx context.Context, t Task) (accuracy.Report, error) { //nolint:gocritic // hugeParam
	return f(ctx, t)
}

// PairEvaluator scores a task with accuracy.EvaluatePair.
var PairEvaluator = EvaluatorFunc(func(_ context.Context, t Task) (accuracy.Report, error) { //nolint:gochecknoglobals // stateless default
	return accuracy.EvaluatePair(t.Model, t.Pair)
})

// Queue defines how workers receive tasks.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Task
}

// Worker processes tasks and replies on each task's channel.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker after its current task.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue     Queue
	evaluator Evaluator
	name      string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, evaluator Evaluator, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		evaluator: evaluator,
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	tasks := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case t, ok := <-tasks:
			if !ok {
				return
			}
			res := w.process(ctx, t)
			if t.Reply != nil {
				t.Reply <- res
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process evaluates one task. A panic inside the evaluator becomes an error
// carrying the task identity.
func (w *InMemoryWorker) process(ctx context.Context, t Task) (res model.Result) { //nolint:gocritic // hugeParam
	start := time.Now()
	metrics.UpdateWorkerActiveCount(1)
	defer func() {
		ms := float64(time.Since(start).Microseconds()) / 1000
		outcome := "ok"
		if res.Err != nil {
			outcome = "error"
		}
		metrics.UpdateWorkerActiveCount(-1)
		metrics.RecordWorkerProcessingLatency(ms)
		metrics.RecordEvaluation(t.Model, outcome, ms)
	}()

	res.TaskID = t.ID
	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("evaluating %s/%s (task %s): panic: %v", t.SensorID, t.Model, t.ID, r)
		}
		if res.Err != nil {
			metrics.RecordWorkerError()
			metrics.RecordErrorByComponent("worker", "evaluation_error")
			w.logger.Debug(ctx, "evaluation failed",
				logger.String("task", t.ID),
				logger.String("sensor", t.SensorID),
				logger.String("model", t.Model),
				logger.Error(res.Err),
			)
		}
	}()

	res.Report, res.Err = w.evaluator.Evaluate(ctx, t)
	return res
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   queue.Queue

	logger logger.Logger
}

// NewPool creates a new worker pool. A non-positive count uses one worker per CPU.
func NewPool(workerCount int, q queue.Queue, evaluator Evaluator) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	if evaluator == nil {
		evaluator = PairEvaluator
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(q, evaluator, WithName("worker-"+strconv.Itoa(i)))
	}

	metrics.UpdateWorkerCount(workerCount)

	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Do submits t and waits for its result. It returns queue.ErrRejected
// without waiting when the queue refuses the task.
func (p *Pool) Do(ctx context.Context, t Task) (accuracy.Report, error) { //nolint:gocritic // hugeParam
	if t.Reply == nil {
		t.Reply = make(chan model.Result, 1)
	}
	if !p.queue.Enqueue(ctx, t) {
		return accuracy.Report{}, queue.ErrRejected
	}
	select {
	case res := <-t.Reply:
		return res.Report, res.Err
	case <-ctx.Done():
		return accuracy.Report{}, ctx.Err()
	}
}

// Stop signals every worker and waits briefly for each.
func (p *Pool) Stop() {
	for _, w := range p.workers {
		close(w.shutdown)
	}
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-time.After(workerShutdownTimeout):
		}
	}
}

// Shutdown closes the queue, lets workers drain it and waits for them.
func (p *Pool) Shutdown(ctx context.Context) error {
	if err := p.queue.Close(); err != nil {
		p.logger.Error(ctx, "error closing queue", logger.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	metrics.UpdateWorkerCount(0)

	return nil
}
