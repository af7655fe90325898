package jwks

import (
	"fmt"
	"time"
)

const (
	// DefaultCacheTTL is how long a fetched key set is trusted.
	DefaultCacheTTL = 300 * time.Second

	// DefaultForcedRefreshInterval is the minimum gap between forced refreshes
	// triggered by unknown kids.
	DefaultForcedRefreshInterval = 10 * time.Second
)

// Option is how options for the Cache are set up.
type Option func(*Cache) error

// WithCacheTTL sets how long a fetched key set is used before it is refreshed.
// If not specified, defaults to 300 seconds. Zero selects the default.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Cache) error {
		if ttl < 0 {
			return fmt.Errorf("cache TTL cannot be negative")
		}
		if ttl == 0 {
			ttl = DefaultCacheTTL
		}
		c.ttl = ttl
		return nil
	}
}

// WithRefreshLimiter bounds forced refreshes caused by unknown kids.
// Passing nil disables limiting.
func WithRefreshLimiter(l RefreshLimiter) Option {
	return func(c *Cache) error {
		c.limiter = l
		return nil
	}
}

// WithLogger sets a structured logger for refresh events.
func WithLogger(l Logger) Option {
	return func(c *Cache) error {
		if l == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		c.logger = l
		return nil
	}
}

// WithRefreshHook registers fn to be called after every refresh attempt with
// the reason and the outcome (nil on success).
func WithRefreshHook(fn func(reason string, err error)) Option {
	return func(c *Cache) error {
		if fn == nil {
			return fmt.Errorf("refresh hook cannot be nil")
		}
		c.onRefresh = fn
		return nil
	}
}
