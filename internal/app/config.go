package service

import (
	"context"
	"fmt"

	"github.com/okian/lineup/internal/adapters/cache"
	"github.com/okian/lineup/internal/adapters/repository"
	"github.com/okian/lineup/internal/config"
	"github.com/okian/lineup/internal/domain/assign"
	"github.com/okian/lineup/internal/domain/optimizer"
	"github.com/okian/lineup/internal/domain/scoring"
	"github.com/okian/lineup/pkg/logger"
)

// NewFromConfig assembles a Service from process configuration: the optimizer
// with its weights, the memory and optional Redis cache tiers, and the store.
func NewFromConfig(ctx context.Context, cfg *config.Config, log logger.Logger) (*Service, error) {
	if log == nil {
		log = logger.NewNop()
	}

	opt := optimizer.New(
		optimizer.WithInnings(cfg.Innings),
		optimizer.WithAssignWeights(assign.Weights{
			WantBonus:             cfg.WantBonus,
			FairnessWeight:        cfg.FairnessWeight,
			VarietyPenalty:        cfg.VarietyPenalty,
			WantBenchPenalty:      cfg.WantBenchPenalty,
			ConsecutiveSitPenalty: cfg.ConsecutiveSitPenalty,
			NoConsecutiveSits:     cfg.NoConsecutiveSits,
		}),
		optimizer.WithEvaluator(scoring.NewEvaluator(
			scoring.WithBenchVarianceWeight(cfg.BenchVarianceWeight),
			scoring.WithLowPrefVarianceWeight(cfg.LowPrefVarianceWeight),
			scoring.WithWantsViolationWeight(cfg.WantsViolationWeight),
			scoring.WithRepeatWeight(cfg.RepeatWeight),
		)),
		optimizer.WithPassFactor(cfg.PassFactor),
		optimizer.WithMaxPasses(cfg.MaxPasses),
		optimizer.WithDefaultImportance(cfg.DefaultImportance),
		optimizer.WithLogger(log.Named("optimizer")),
	)

	var tiers []cache.Cache
	if cfg.CacheSize > 0 {
		tiers = append(tiers, cache.NewMemory(
			cache.WithMaxSize(cfg.CacheSize),
			cache.WithMemoryTTL(cfg.CacheTTL()),
		))
	}
	if cfg.RedisURL != "" {
		r, err := cache.NewRedisFromURL(cfg.RedisURL,
			cache.WithRedisTTL(cfg.CacheTTL()),
			cache.WithBreakerFailures(cfg.RedisBreakerFailures),
			cache.WithRedisLogger(log.Named("redis")),
		)
		if err != nil {
			return nil, err
		}
		// an unreachable Redis is not fatal; the breaker turns it into misses
		if err := r.Ping(ctx); err != nil {
			log.Warn(ctx, "redis cache unreachable at startup", logger.Error(err))
		}
		tiers = append(tiers, r)
	}

	var c cache.Cache
	if len(tiers) > 0 {
		c = cache.NewTiered(tiers...)
	}

	return New(
		WithWorkerCount(cfg.WorkerCount),
		WithQueueSize(cfg.QueueSize),
		WithRequestTimeout(cfg.RequestTimeout()),
		WithSolver(opt, Salt(cfg)),
		WithCache(c),
		WithStore(repository.NewMemoryStore()),
		WithLogger(log),
	), nil
}

// Salt describes every setting that changes optimization output.
func Salt(cfg *config.Config) string {
	return fmt.Sprintf("v1|i=%d|wb=%g|fw=%g|vp=%g|wbp=%g|csp=%g|ncs=%t|bv=%g|lp=%g|wv=%g|rp=%g|di=%g|pf=%d|mp=%d",
		cfg.Innings, cfg.WantBonus, cfg.FairnessWeight, cfg.VarietyPenalty, cfg.WantBenchPenalty,
		cfg.ConsecutiveSitPenalty, cfg.NoConsecutiveSits, cfg.BenchVarianceWeight, cfg.LowPrefVarianceWeight,
		cfg.WantsViolationWeight, cfg.RepeatWeight, cfg.DefaultImportance, cfg.PassFactor, cfg.MaxPasses)
}
