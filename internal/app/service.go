// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/lineup/internal/adapters/cache"
	jobqueue "github.com/okian/lineup/internal/adapters/mq/queue"
	workerpool "github.com/okian/lineup/internal/adapters/mq/worker"
	"github.com/okian/lineup/internal/adapters/repository"
	"github.com/okian/lineup/internal/domain/model"
	"github.com/okian/lineup/internal/domain/optimizer"
	"github.com/okian/lineup/internal/domain/types"
	"github.com/okian/lineup/pkg/logger"
	"github.com/okian/lineup/pkg/metrics"
)

const (
	defaultQueueSize      = 256
	defaultRequestTimeout = 10 * time.Second
	stopTimeout           = 30 * time.Second

	// how long a timed-out request still waits for a running job's best-so-far answer
	replyGrace = 250 * time.Millisecond
)

// Service implements the API dependencies for lineup generation.
type Service struct {
	mu sync.RWMutex

	// Core components
	solver workerpool.Solver
	cache  cache.Cache
	store  repository.Store
	queue  *jobqueue.InMemoryQueue
	pool   *workerpool.Pool

	// Configuration
	workerCount    int
	queueSize      int
	requestTimeout time.Duration
	salt           string

	// State
	started bool

	requests  atomic.Int64
	cacheHits atomic.Int64
	failures  atomic.Int64

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets how many jobs may wait before requests are refused.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithRequestTimeout bounds a single optimization request.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.requestTimeout = d
		}
	}
}

// WithSolver sets the optimizer. salt must change whenever the solver's
// configuration does, since it is part of every cache key.
func WithSolver(solver workerpool.Solver, salt string) Option {
	return func(s *Service) {
		if solver != nil {
			s.solver = solver
			s.salt = salt
		}
	}
}

// WithCache sets the result cache; nil disables caching.
func WithCache(c cache.Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithStore sets the lineup store.
func WithStore(st repository.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		solver:         optimizer.New(),
		cache:          cache.NewMemory(),
		store:          repository.NewMemoryStore(),
		workerCount:    runtime.NumCPU(),
		queueSize:      defaultQueueSize,
		requestTimeout: defaultRequestTimeout,
		salt:           "default",
		logger:         logger.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start creates the job queue and starts the worker pool. Workers live until
// Stop or until ctx ends.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.queue = jobqueue.NewInMemoryQueue(jobqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.solver,
		workerpool.WithPoolLogger(s.logger.Named("workers")),
	)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "lineup service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Duration("requestTimeout", s.requestTimeout),
	)
	return nil
}

// Stop drains queued jobs and stops the workers.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown incomplete", logger.Error(err))
	}
	if closer, ok := s.cache.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			s.logger.Warn(ctx, "closing cache", logger.Error(err))
		}
	}

	s.started = false
	s.logger.Info(ctx, "lineup service stopped")
}

// GenerateLineup optimizes the roster and stores the result as the team's
// newest lineup.
func (s *Service) GenerateLineup(ctx context.Context, teamID string, roster model.Roster, importance model.Importance) (types.LineupResponse, error) {
	res, cached, err := s.optimize(ctx, teamID, roster, importance)
	if err != nil {
		return types.LineupResponse{}, err
	}

	saved, err := s.store.Save(ctx, teamID, res)
	if err != nil {
		return types.LineupResponse{}, fmt.Errorf("save lineup: %w", err)
	}
	return render(saved, cached), nil
}

// Optimize answers a one-off request without storing it.
func (s *Service) Optimize(ctx context.Context, roster model.Roster, importance model.Importance) (types.LineupResponse, error) {
	res, cached, err := s.optimize(ctx, "", roster, importance)
	if err != nil {
		return types.LineupResponse{}, err
	}
	out := types.FromResult(res)
	out.Stats.Cached = cached
	return out, nil
}

// LatestLineup returns the team's newest stored lineup.
func (s *Service) LatestLineup(ctx context.Context, teamID string) (types.LineupResponse, error) {
	l, err := s.store.Latest(ctx, teamID)
	if err != nil {
		return types.LineupResponse{}, err
	}
	return render(l, false), nil
}

// LineupHistory returns up to n stored lineups for the team, newest first.
func (s *Service) LineupHistory(ctx context.Context, teamID string, n int) ([]types.LineupResponse, error) {
	hist, err := s.store.History(ctx, teamID, n)
	if err != nil {
		return nil, err
	}
	out := make([]types.LineupResponse, len(hist))
	for i, l := range hist {
		out[i] = render(l, false)
	}
	return out, nil
}

func render(l repository.Lineup, cached bool) types.LineupResponse {
	out := types.FromResult(l.Result)
	out.TeamID = l.TeamID
	at := l.GeneratedAt
	out.GeneratedAt = &at
	out.Stats.Cached = cached
	return out
}

// optimize consults the cache, then runs the job on the pool and waits for it.
func (s *Service) optimize(ctx context.Context, teamID string, roster model.Roster, importance model.Importance) (*model.Result, bool, error) {
	s.mu.RLock()
	started, q := s.started, s.queue
	s.mu.RUnlock()
	if !started {
		return nil, false, ErrNotStarted
	}
	s.requests.Add(1)

	key := cache.Fingerprint(roster, importance, s.salt)
	if s.cache != nil {
		res, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Debug(ctx, "cache lookup failed", logger.Error(err))
		}
		if ok {
			s.cacheHits.Add(1)
			metrics.RecordOptimization("cached")
			return res, true, nil
		}
	}

	res, err := s.run(ctx, q, teamID, roster, importance)
	if err != nil {
		s.failures.Add(1)
		return nil, false, err
	}

	// interrupted schedules are not the deterministic answer for this input
	if s.cache != nil && !res.Stats.Interrupted {
		if err := s.cache.Set(ctx, key, res); err != nil {
			s.logger.Warn(ctx, "cache store failed", logger.Error(err))
		}
	}
	return res, false, nil
}

func (s *Service) run(ctx context.Context, q jobqueue.Queue, teamID string, roster model.Roster, importance model.Importance) (*model.Result, error) {
	rctx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()

	reply := make(chan model.JobResult, 1)
	job := &model.Job{
		ID:         uuid.NewString(),
		TeamID:     teamID,
		Roster:     roster,
		Importance: importance,
		Ctx:        rctx,
		Reply:      reply,
	}

	if err := q.Enqueue(rctx, job); err != nil {
		if errors.Is(err, jobqueue.ErrFull) || errors.Is(err, jobqueue.ErrClosed) {
			return nil, fmt.Errorf("%w: %w", ErrBackpressure, err)
		}
		return nil, &model.CancelledError{Cause: err}
	}

	select {
	case r := <-reply:
		return r.Result, r.Err
	case <-rctx.Done():
	}

	select {
	case r := <-reply:
		return r.Result, r.Err
	case <-time.After(replyGrace):
		s.logger.Debug(ctx, "optimization abandoned", logger.String("job", job.ID), logger.String("team", teamID))
		return nil, &model.CancelledError{Cause: rctx.Err()}
	}
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":          s.started,
		"workerCount":      s.workerCount,
		"queueSize":        s.queueSize,
		"requestTimeoutMs": s.requestTimeout.Milliseconds(),
		"requests":         s.requests.Load(),
		"cacheHits":        s.cacheHits.Load(),
		"failures":         s.failures.Load(),
		"storedTeams":      s.store.Count(ctx),
	}
	if s.cache != nil {
		stats["cache"] = s.cache.Name()
	}
	if s.started {
		stats["queueLength"] = s.queue.Len(ctx)
		stats["workers"] = s.pool.Size()
	}
	return stats
}
