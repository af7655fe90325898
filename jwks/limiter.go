package jwks

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RefreshLimiter decides whether a forced refresh may go out.
// Allow is only consulted for refreshes triggered by unknown kids.
type RefreshLimiter interface {
	Allow(ctx context.Context) bool
}

// IntervalLimiter allows at most one forced refresh per interval in this process.
type IntervalLimiter struct {
	interval time.Duration
	now      func() time.Time

	mu   sync.Mutex
	last time.Time
}

// NewIntervalLimiter returns a limiter with the given minimum interval.
// A non-positive interval allows every refresh.
func NewIntervalLimiter(interval time.Duration) *IntervalLimiter {
	return &IntervalLimiter{interval: interval, now: time.Now}
}

// Allow implements RefreshLimiter.
func (l *IntervalLimiter) Allow(context.Context) bool {
	if l.interval <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if !l.last.IsZero() && now.Sub(l.last) < l.interval {
		return false
	}
	l.last = now
	return true
}

// RedisCounter is the subset of redis.Cmdable used by RedisLimiter.
// Both *redis.Client and *redis.ClusterClient satisfy it.
type RedisCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// RedisLimiter enforces a fleet-wide budget of forced refreshes per fixed
// window, shared by every instance pointing at the same Redis.
type RedisLimiter struct {
	client   RedisCounter
	prefix   string
	budget   int64
	window   time.Duration
	fallback RefreshLimiter
	logger   Logger
	now      func() time.Time
}

// RedisLimiterOption configures a RedisLimiter.
type RedisLimiterOption func(*RedisLimiter)

// WithKeyPrefix overrides the Redis key prefix (default "billetera:jwks:forced:").
func WithKeyPrefix(prefix string) RedisLimiterOption {
	return func(l *RedisLimiter) { l.prefix = prefix }
}

// WithFallback sets the limiter consulted when Redis is unavailable.
// Without one, a Redis failure allows the refresh.
func WithFallback(fallback RefreshLimiter) RedisLimiterOption {
	return func(l *RedisLimiter) { l.fallback = fallback }
}

// WithLimiterLogger sets the logger for Redis failures.
func WithLimiterLogger(logger Logger) RedisLimiterOption {
	return func(l *RedisLimiter) { l.logger = logger }
}

// NewRedisLimiter allows budget forced refreshes per window across the fleet.
func NewRedisLimiter(client RedisCounter, budget int64, window time.Duration, opts ...RedisLimiterOption) *RedisLimiter {
	l := &RedisLimiter{
		client: client,
		prefix: "billetera:jwks:forced:",
		budget: budget,
		window: window,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow implements RefreshLimiter with INCR on the current window's key.
func (l *RedisLimiter) Allow(ctx context.Context) bool {
	bucket := l.now().Truncate(l.window).Unix()
	key := l.prefix + strconv.FormatInt(bucket, 10)

	n, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		if l.logger != nil {
			l.logger.Warn("Redis refresh limiter unavailable", "error", err)
		}
		if l.fallback != nil {
			return l.fallback.Allow(ctx)
		}
		return true
	}

	if n == 1 {
		// Keep the key a little past its window so late INCRs still expire.
		if err := l.client.Expire(ctx, key, 2*l.window).Err(); err != nil && l.logger != nil {
			l.logger.Warn("Could not set expiry on refresh budget key", "key", key, "error", err)
		}
	}

	return n <= l.budget
}

// ChainLimiter allows a refresh only if every limiter allows it.
// Limiters are consulted in order and evaluation stops at the first denial,
// so cheap local limiters should come first.
type ChainLimiter []RefreshLimiter

// Allow implements RefreshLimiter.
func (c ChainLimiter) Allow(ctx context.Context) bool {
	for _, l := range c {
		if l != nil && !l.Allow(ctx) {
			return false
		}
	}
	return true
}
