package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/okian/lineup/internal/domain/model"
	"github.com/okian/lineup/pkg/logger"
)

const (
	defaultKeyPrefix       = "lineup:result:"
	defaultBreakerFailures = 5
	defaultBreakerTimeout  = 30 * time.Second
	defaultOpTimeout       = 250 * time.Millisecond
)

// Redis shares results between service instances. Calls go through a circuit
// breaker so a slow or absent Redis degrades to cache misses.
type Redis struct {
	client    redis.UniversalClient
	breaker   *gobreaker.CircuitBreaker
	prefix    string
	ttl       time.Duration
	opTimeout time.Duration
	failures  uint32
	cbTimeout time.Duration
	log       logger.Logger
}

// RedisOption configures Redis.
type RedisOption func(*Redis)

// WithKeyPrefix sets the key namespace.
func WithKeyPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		if prefix != "" {
			r.prefix = prefix
		}
	}
}

// WithRedisTTL sets entry expiry; zero keeps entries forever.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) {
		if ttl >= 0 {
			r.ttl = ttl
		}
	}
}

// WithBreakerFailures sets how many consecutive failures open the breaker.
func WithBreakerFailures(n int) RedisOption {
	return func(r *Redis) {
		if n > 0 {
			r.failures = uint32(n)
		}
	}
}

// WithBreakerTimeout sets how long the breaker stays open before probing again.
func WithBreakerTimeout(d time.Duration) RedisOption {
	return func(r *Redis) {
		if d > 0 {
			r.cbTimeout = d
		}
	}
}

// WithOpTimeout bounds each Redis round trip.
func WithOpTimeout(d time.Duration) RedisOption {
	return func(r *Redis) {
		if d > 0 {
			r.opTimeout = d
		}
	}
}

// WithRedisLogger sets the logger.
func WithRedisLogger(l logger.Logger) RedisOption {
	return func(r *Redis) {
		if l != nil {
			r.log = l
		}
	}
}

// NewRedis wraps an existing client.
func NewRedis(client redis.UniversalClient, opts ...RedisOption) *Redis {
	r := &Redis{
		client:    client,
		prefix:    defaultKeyPrefix,
		ttl:       defaultTTL,
		opTimeout: defaultOpTimeout,
		failures:  defaultBreakerFailures,
		cbTimeout: defaultBreakerTimeout,
		log:       logger.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "redis-cache",
		MaxRequests: 1,
		Timeout:     r.cbTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= r.failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, redis.Nil) || errors.Is(err, ErrCodec)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			r.log.Warn(context.Background(), "cache breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		},
	})
	return r
}

// NewRedisFromURL dials Redis from a redis:// URL.
func NewRedisFromURL(url string, opts ...RedisOption) (*Redis, error) {
	o, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedis(redis.NewClient(o), opts...), nil
}

// Name implements Cache.
func (r *Redis) Name() string { return "redis" }

// Ping checks connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Get implements Cache.
func (r *Redis) Get(ctx context.Context, key string) (*model.Result, bool, error) {
	out, err := r.breaker.Execute(func() (interface{}, error) {
		cctx, cancel := context.WithTimeout(ctx, r.opTimeout)
		defer cancel()
		data, err := r.client.Get(cctx, r.prefix+key).Bytes()
		if err != nil {
			return nil, err
		}
		var res model.Result
		if err := json.Unmarshal(data, &res); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCodec, err)
		}
		return &res, nil
	})
	switch {
	case err == nil:
		return out.(*model.Result), true, nil
	case errors.Is(err, redis.Nil):
		return nil, false, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, false, fmt.Errorf("%w: %w", ErrUnavailable, err)
	default:
		return nil, false, err
	}
}

// Set implements Cache.
func (r *Redis) Set(ctx context.Context, key string, res *model.Result) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCodec, err)
	}
	_, err = r.breaker.Execute(func() (interface{}, error) {
		cctx, cancel := context.WithTimeout(ctx, r.opTimeout)
		defer cancel()
		return nil, r.client.Set(cctx, r.prefix+key, data, r.ttl).Err()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}

// BreakerState reports the circuit breaker state.
func (r *Redis) BreakerState() string {
	return r.breaker.State().String()
}
