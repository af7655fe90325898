package jwks

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwk"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const tracerName = "github.com/billetera/billetera-api/jwks"

// Refresh reasons reported to the refresh hook.
const (
	RefreshReasonExpired    = "expired"
	RefreshReasonUnknownKey = "unknown_kid"
)

var (
	// ErrKeyNotFound is returned when a kid is absent even after a forced refresh.
	ErrKeyNotFound = errors.New("jwks: signing key not found")

	// ErrFetchFailed wraps any failure to download or parse the key set.
	ErrFetchFailed = errors.New("jwks: could not fetch key set")

	// ErrRefreshDenied is reported to the refresh hook when the limiter
	// rejects a forced refresh.
	ErrRefreshDenied = errors.New("jwks: forced refresh denied by limiter")
)

// Fetcher downloads the provider's current key set.
type Fetcher interface {
	FetchKeySet(ctx context.Context) (jwk.Set, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context) (jwk.Set, error)

// FetchKeySet calls f(ctx).
func (f FetcherFunc) FetchKeySet(ctx context.Context) (jwk.Set, error) {
	return f(ctx)
}

// Logger is the structured logger used by the cache.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SigningKey is one public key from the provider's key set.
type SigningKey struct {
	KeyID     string
	Algorithm string // empty when the key does not advertise one
	Key       jwk.Key
}

// snapshot is an immutable view of one successful fetch.
type snapshot struct {
	keys       map[string]*SigningKey
	expiresAt  time.Time
	generation uint64
}

// fresh reports whether the snapshot was loaded and has not expired.
// Generation zero is the empty snapshot installed at construction.
func (s *snapshot) fresh(now time.Time) bool {
	return s.generation > 0 && now.Before(s.expiresAt)
}

// Cache holds the provider's signing keys keyed by kid.
//
// Readers load the current snapshot without locking. Refreshes are serialized
// through a one-slot semaphore and publish a new snapshot with a single atomic
// swap, so a reader sees either the old key map or the new one, never a mix.
// There is no background refresh: the key set is fetched on first use, after
// the TTL elapses, and at most once more when a kid is unknown.
type Cache struct {
	fetcher   Fetcher
	ttl       time.Duration
	limiter   RefreshLimiter
	logger    Logger
	onRefresh func(reason string, err error)
	now       func() time.Time

	current atomic.Pointer[snapshot]
	sem     chan struct{}
}

// NewCache builds a Cache that loads keys through fetcher.
//
// Optional options:
//   - WithCacheTTL: snapshot lifetime (default: 300s)
//   - WithRefreshLimiter: bound forced refreshes (default: one per 10s)
//   - WithLogger: structured logging
//   - WithRefreshHook: observe every fetch attempt
//
// Example:
//
//	cache, err := jwks.NewCache(gotrueClient,
//	    jwks.WithCacheTTL(5*time.Minute),
//	    jwks.WithRefreshLimiter(jwks.NewIntervalLimiter(10*time.Second)),
//	)
func NewCache(fetcher Fetcher, opts ...Option) (*Cache, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}

	c := &Cache{
		fetcher: fetcher,
		ttl:     DefaultCacheTTL,
		limiter: NewIntervalLimiter(DefaultForcedRefreshInterval),
		now:     time.Now,
		sem:     make(chan struct{}, 1),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	c.current.Store(&snapshot{})
	return c, nil
}

// GetKey returns the signing key for kid.
//
// An empty or expired snapshot is refreshed before the lookup. When kid is
// missing, one forced refresh is attempted unless this call already fetched
// the key set or the limiter denies it. Fetch failures wrap ErrFetchFailed and
// never fall back to stale keys.
//
// The forced refresh is only as available as the limiter allows. With the
// default IntervalLimiter a refresh spent on any unknown kid, forged or not,
// leaves newly rotated keys unresolvable until the interval passes or the
// snapshot expires. WithRefreshLimiter(nil) restores one refresh per miss.
func (c *Cache) GetKey(ctx context.Context, kid string) (*SigningKey, error) {
	snap := c.current.Load()
	fetched := false

	if !snap.fresh(c.now()) {
		var err error
		snap, err = c.refresh(ctx, snap.generation, RefreshReasonExpired)
		if err != nil {
			return nil, err
		}
		fetched = true
	}

	if key, ok := snap.keys[kid]; ok {
		return key, nil
	}
	if fetched {
		return nil, ErrKeyNotFound
	}

	snap, err := c.refresh(ctx, snap.generation, RefreshReasonUnknownKey)
	if err != nil {
		if errors.Is(err, ErrRefreshDenied) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}

	if key, ok := snap.keys[kid]; ok {
		return key, nil
	}
	return nil, ErrKeyNotFound
}

// Len returns the number of keys in the current snapshot.
func (c *Cache) Len() int {
	return len(c.current.Load().keys)
}

// refresh fetches a new snapshot unless one newer than seen was published
// while this caller waited for the semaphore.
func (c *Cache) refresh(ctx context.Context, seen uint64, reason string) (*snapshot, error) {
	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, ctx.Err())
	}
	defer func() { <-c.sem }()

	// Double-check after acquiring the slot - another caller may have fetched.
	cur := c.current.Load()
	if cur.generation != seen {
		if reason == RefreshReasonUnknownKey || cur.fresh(c.now()) {
			return cur, nil
		}
	}

	if reason == RefreshReasonUnknownKey && c.limiter != nil && !c.limiter.Allow(ctx) {
		c.log().Warn("Forced key set refresh denied", "reason", reason)
		c.report(reason, ErrRefreshDenied)
		return nil, ErrRefreshDenied
	}

	next, err := c.fetch(ctx, cur.generation, reason)
	c.report(reason, err)
	if err != nil {
		c.log().Error("Key set refresh failed", "reason", reason, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	c.current.Store(next)
	c.log().Info("Key set refreshed", "reason", reason, "keys", len(next.keys), "generation", next.generation)
	return next, nil
}

func (c *Cache) fetch(ctx context.Context, prev uint64, reason string) (*snapshot, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "jwks.refresh")
	defer span.End()
	span.SetAttributes(attribute.String("jwks.reason", reason))

	set, err := c.fetcher.FetchKeySet(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, err
	}

	keys := make(map[string]*SigningKey, set.Len())
	for i := 0; i < set.Len(); i++ {
		key, ok := set.Key(i)
		if !ok {
			continue
		}
		kid, ok := key.KeyID()
		if !ok || kid == "" {
			c.log().Debug("Skipping key without kid")
			continue
		}
		if _, dup := keys[kid]; dup {
			continue
		}

		sk := &SigningKey{KeyID: kid, Key: key}
		if alg, ok := key.Algorithm(); ok {
			sk.Algorithm = alg.String()
		}
		keys[kid] = sk
	}

	span.SetAttributes(attribute.Int("jwks.keys", len(keys)))
	return &snapshot{
		keys:       keys,
		expiresAt:  c.now().Add(c.ttl),
		generation: prev + 1,
	}, nil
}

func (c *Cache) report(reason string, err error) {
	if c.onRefresh != nil {
		c.onRefresh(reason, err)
	}
}

func (c *Cache) log() Logger {
	if c.logger == nil {
		return nopLogger{}
	}
	return c.logger
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
