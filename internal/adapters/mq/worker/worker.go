// Package worker runs queued optimization jobs on a fixed pool of goroutines.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/okian/lineup/internal/domain/model"
	"github.com/okian/lineup/pkg/logger"
	"github.com/okian/lineup/pkg/metrics"
)

const defaultShutdownTimeout = 30 * time.Second

// Solver computes a lineup for one request.
type Solver interface {
	Optimize(ctx context.Context, roster model.Roster, importance model.Importance) (*model.Result, error)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan *model.Job
}

// Worker processes jobs until its queue closes or it is stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker after its current job.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue  Queue
	solver Solver
	name   string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, solver Solver, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		solver:   solver,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			w.process(job)
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process runs one job and always answers it.
func (w *InMemoryWorker) process(job *model.Job) {
	if job == nil {
		return
	}
	ctx := job.Context()
	metrics.RecordQueueWait(float64(time.Since(job.EnqueuedAt).Milliseconds()))

	// the requester may have given up while the job was waiting
	if err := ctx.Err(); err != nil {
		metrics.RecordOptimization(Outcome(err))
		reply(job, model.JobResult{Err: &model.CancelledError{Cause: err}})
		return
	}

	metrics.UpdateWorkerBusy(1)
	start := time.Now()
	res, err := w.solve(ctx, job)
	took := time.Since(start)
	metrics.UpdateWorkerBusy(-1)
	metrics.RecordWorkerProcessingLatency(float64(took.Milliseconds()))
	metrics.RecordOptimization(Outcome(err))

	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", Outcome(err))
		w.logger.Debug(ctx, "optimization failed",
			logger.String("job", job.ID),
			logger.String("team", job.TeamID),
			logger.Error(err),
		)
		reply(job, model.JobResult{Err: err})
		return
	}

	metrics.RecordOptimizeDuration(float64(took.Milliseconds()))
	metrics.RecordObjectiveValue(res.Score.Total)
	metrics.RecordImprovementPasses(res.Stats.Passes)
	metrics.RecordSwapsAccepted(res.Stats.SwapsAccepted)
	metrics.RecordRosterSize(len(job.Roster))
	for range res.Stats.RelaxedInnings {
		metrics.RecordRelaxationRetry()
	}
	if res.Stats.Interrupted {
		metrics.RecordInterrupted()
	}
	reply(job, model.JobResult{Result: res})
}

// solve shields the pool from a panicking solver.
func (w *InMemoryWorker) solve(ctx context.Context, job *model.Job) (res *model.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error(ctx, "solver panicked", logger.String("job", job.ID), logger.Any("panic", r))
			res, err = nil, fmt.Errorf("solver panic: %v", r)
		}
	}()
	return w.solver.Optimize(ctx, job.Roster, job.Importance)
}

func reply(job *model.Job, r model.JobResult) {
	if job.Reply == nil {
		return
	}
	select {
	case job.Reply <- r:
	default:
	}
}

// Outcome classifies an optimization error for metrics labels.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, model.ErrEmptyRoster):
		return "empty_roster"
	case errors.Is(err, model.ErrInfeasibleRoster), errors.Is(err, model.ErrInfeasibleInning):
		return "infeasible"
	case errors.Is(err, model.ErrCancelled), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	shutdownTimeout time.Duration
	logger          logger.Logger
}

// NewPool creates a worker pool. A count below one uses one worker per CPU.
func NewPool(workerCount int, queue Queue, solver Solver, opts ...PoolOption) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	pool := &Pool{
		workers:         make([]*InMemoryWorker, workerCount),
		queue:           queue,
		shutdownTimeout: defaultShutdownTimeout,
		logger:          logger.NewNop(),
	}
	for _, opt := range opts {
		opt(pool)
	}

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(queue, solver,
			WithName("worker-"+strconv.Itoa(i)),
			WithLogger(pool.logger),
		)
	}

	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Shutdown closes the queue, lets workers drain it, and waits for them.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, p.shutdownTimeout)
	defer cancel()

	var timedOut int
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut++
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	metrics.UpdateWorkerCount(0)
	if timedOut > 0 {
		return fmt.Errorf("%d workers did not stop: %w", timedOut, shutdownCtx.Err())
	}
	return nil
}
