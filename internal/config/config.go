// Package config defines service configuration and its loading.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"runtime"
	"time"
)

// ErrInvalidConfig wraps every Validate failure; ErrLoadConfig wraps source
// and decoding failures from Load.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// WorkerCount sets the number of optimization workers.
	WorkerCount int `koanf:"worker_count"`
	// QueueSize bounds the pending optimization jobs before requests get 429.
	QueueSize int `koanf:"queue_size"`
	// RequestTimeoutMS bounds a single optimization request end to end.
	RequestTimeoutMS int `koanf:"request_timeout_ms"`
	// MaxRosterSize rejects larger rosters at the API boundary.
	MaxRosterSize int `koanf:"max_roster_size"`

	// Innings per game.
	Innings int `koanf:"innings"`

	// Assignment weights.
	WantBonus             float64 `koanf:"want_bonus"`
	FairnessWeight        float64 `koanf:"fairness_weight"`
	VarietyPenalty        float64 `koanf:"variety_penalty"`
	WantBenchPenalty      float64 `koanf:"want_bench_penalty"`
	ConsecutiveSitPenalty float64 `koanf:"consecutive_sit_penalty"`
	NoConsecutiveSits     bool    `koanf:"no_consecutive_sits"`

	// Objective weights.
	BenchVarianceWeight   float64 `koanf:"bench_variance_weight"`
	LowPrefVarianceWeight float64 `koanf:"low_pref_variance_weight"`
	WantsViolationWeight  float64 `koanf:"wants_violation_weight"`
	RepeatWeight          float64 `koanf:"repeat_weight"`

	// DefaultImportance fills positions missing from a request's importance map.
	DefaultImportance float64 `koanf:"default_importance"`

	// PassFactor scales the local search pass budget with roster size and innings.
	PassFactor int `koanf:"pass_factor"`
	// MaxPasses caps the local search pass budget.
	MaxPasses int `koanf:"max_passes"`

	// CacheSize bounds the in-memory result cache; 0 disables it.
	CacheSize int `koanf:"cache_size"`
	// CacheTTLSeconds is the lifetime of cached results in both cache backends.
	CacheTTLSeconds int `koanf:"cache_ttl_s"`
	// RedisURL enables the shared Redis result cache, e.g. redis://localhost:6379/0.
	RedisURL string `koanf:"redis_url"`
	// RedisBreakerFailures consecutive failures open the Redis circuit breaker.
	RedisBreakerFailures int `koanf:"redis_breaker_failures"`

	// RateLimitRPS and RateLimitBurst configure the optimization endpoints limiter; RPS 0 disables it.
	RateLimitRPS   float64 `koanf:"rate_limit_rps"`
	RateLimitBurst int     `koanf:"rate_limit_burst"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		Addr:                  ":9080",
		WorkerCount:           runtime.NumCPU(),
		QueueSize:             256,
		RequestTimeoutMS:      10_000,
		MaxRosterSize:         40,
		Innings:               9,
		WantBonus:             1.25,
		FairnessWeight:        10,
		VarietyPenalty:        1,
		WantBenchPenalty:      0.5,
		ConsecutiveSitPenalty: 5,
		NoConsecutiveSits:     true,
		BenchVarianceWeight:   3,
		LowPrefVarianceWeight: 0.5,
		WantsViolationWeight:  2,
		RepeatWeight:          0.25,
		DefaultImportance:     50,
		PassFactor:            4,
		MaxPasses:             200,
		CacheSize:             1024,
		CacheTTLSeconds:       3600,
		RedisBreakerFailures:  5,
		RateLimitRPS:          20,
		RateLimitBurst:        40,
	}
}

// RequestTimeout returns RequestTimeoutMS as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// CacheTTL returns CacheTTLSeconds as a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// Validate reports the first invalid setting wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.WorkerCount < 1:
		return fmt.Errorf("%w: worker_count must be >= 1", ErrInvalidConfig)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue_size must be >= 1", ErrInvalidConfig)
	case c.RequestTimeoutMS < 1:
		return fmt.Errorf("%w: request_timeout_ms must be >= 1", ErrInvalidConfig)
	case c.MaxRosterSize < 1:
		return fmt.Errorf("%w: max_roster_size must be >= 1", ErrInvalidConfig)
	case c.Innings < 1:
		return fmt.Errorf("%w: innings must be >= 1", ErrInvalidConfig)
	case c.WantBonus < 1:
		return fmt.Errorf("%w: want_bonus must be >= 1", ErrInvalidConfig)
	case c.DefaultImportance < 0 || c.DefaultImportance > 100:
		return fmt.Errorf("%w: default_importance must be within [0,100]", ErrInvalidConfig)
	case c.FairnessWeight < 0 || c.VarietyPenalty < 0 || c.WantBenchPenalty < 0 || c.ConsecutiveSitPenalty < 0:
		return fmt.Errorf("%w: assignment weights must be non-negative", ErrInvalidConfig)
	case c.BenchVarianceWeight < 0 || c.LowPrefVarianceWeight < 0 || c.WantsViolationWeight < 0 || c.RepeatWeight < 0:
		return fmt.Errorf("%w: objective weights must be non-negative", ErrInvalidConfig)
	case c.PassFactor < 1 || c.MaxPasses < 1:
		return fmt.Errorf("%w: pass_factor and max_passes must be >= 1", ErrInvalidConfig)
	case c.CacheSize < 0 || c.CacheTTLSeconds < 0:
		return fmt.Errorf("%w: cache settings must be non-negative", ErrInvalidConfig)
	case c.RateLimitRPS < 0 || c.RateLimitBurst < 0:
		return fmt.Errorf("%w: rate limit settings must be non-negative", ErrInvalidConfig)
	case c.RedisURL != "" && !redisScheme(c.RedisURL):
		return fmt.Errorf("%w: redis_url must be a redis:// or rediss:// URL", ErrInvalidConfig)
	}
	return nil
}

func redisScheme(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "redis" || u.Scheme == "rediss") && u.Host != ""
}
