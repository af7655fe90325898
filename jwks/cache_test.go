package jwks

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingFetcher serves whatever set is currently installed and counts calls.
type countingFetcher struct {
	calls atomic.Int32
	delay time.Duration

	mu  sync.Mutex
	set jwk.Set
	err error
}

func (f *countingFetcher) FetchKeySet(ctx context.Context) (jwk.Set, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.set, f.err
}

func (f *countingFetcher) serve(set jwk.Set, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.set, f.err = set, err
}

func publicKey(t *testing.T, kid string) jwk.Key {
	t.Helper()

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	key, err := jwk.Import(priv.Public())
	require.NoError(t, err)
	if kid != "" {
		require.NoError(t, key.Set(jwk.KeyIDKey, kid))
	}
	require.NoError(t, key.Set(jwk.AlgorithmKey, jwa.ES256()))
	return key
}

func keySet(t *testing.T, keys ...jwk.Key) jwk.Set {
	t.Helper()

	set := jwk.NewSet()
	for _, k := range keys {
		require.NoError(t, set.AddKey(k))
	}
	return set
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestCache(t *testing.T, f Fetcher, opts ...Option) (*Cache, *fakeClock) {
	t.Helper()

	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	opts = append([]Option{WithRefreshLimiter(nil)}, opts...)
	c, err := NewCache(f, opts...)
	require.NoError(t, err)
	c.now = clock.Now
	return c, clock
}

func TestCache_GetKey(t *testing.T) {
	t.Run("first lookup on an empty cache fetches once", func(t *testing.T) {
		f := &countingFetcher{}
		f.serve(keySet(t, publicKey(t, "k1")), nil)
		c, _ := newTestCache(t, f)

		key, err := c.GetKey(context.Background(), "k1")
		require.NoError(t, err)
		assert.Equal(t, "k1", key.KeyID)
		assert.Equal(t, "ES256", key.Algorithm)
		assert.EqualValues(t, 1, f.calls.Load())

		_, err = c.GetKey(context.Background(), "k1")
		require.NoError(t, err)
		assert.EqualValues(t, 1, f.calls.Load(), "second lookup must be served from cache")
	})

	t.Run("refreshes after the TTL elapses", func(t *testing.T) {
		f := &countingFetcher{}
		f.serve(keySet(t, publicKey(t, "k1")), nil)
		c, clock := newTestCache(t, f, WithCacheTTL(time.Minute))

		_, err := c.GetKey(context.Background(), "k1")
		require.NoError(t, err)

		clock.Advance(59 * time.Second)
		_, err = c.GetKey(context.Background(), "k1")
		require.NoError(t, err)
		assert.EqualValues(t, 1, f.calls.Load())

		clock.Advance(time.Second)
		_, err = c.GetKey(context.Background(), "k1")
		require.NoError(t, err)
		assert.EqualValues(t, 2, f.calls.Load())
	})

	t.Run("unknown kid forces exactly one refresh", func(t *testing.T) {
		f := &countingFetcher{}
		f.serve(keySet(t, publicKey(t, "k1")), nil)
		c, _ := newTestCache(t, f)

		_, err := c.GetKey(context.Background(), "k1")
		require.NoError(t, err)

		_, err = c.GetKey(context.Background(), "nope")
		assert.ErrorIs(t, err, ErrKeyNotFound)
		assert.EqualValues(t, 2, f.calls.Load())
	})

	t.Run("rotated key is picked up by the forced refresh", func(t *testing.T) {
		f := &countingFetcher{}
		f.serve(keySet(t, publicKey(t, "k1")), nil)
		c, _ := newTestCache(t, f)

		_, err := c.GetKey(context.Background(), "k1")
		require.NoError(t, err)

		f.serve(keySet(t, publicKey(t, "k2")), nil)

		key, err := c.GetKey(context.Background(), "k2")
		require.NoError(t, err)
		assert.Equal(t, "k2", key.KeyID)

		// The whole map was replaced, k1 is gone.
		_, err = c.GetKey(context.Background(), "k1")
		assert.ErrorIs(t, err, ErrKeyNotFound)
	})

	t.Run("a miss right after the initial load does not fetch again", func(t *testing.T) {
		f := &countingFetcher{}
		f.serve(keySet(t, publicKey(t, "k1")), nil)
		c, _ := newTestCache(t, f)

		_, err := c.GetKey(context.Background(), "nope")
		assert.ErrorIs(t, err, ErrKeyNotFound)
		assert.EqualValues(t, 1, f.calls.Load())
	})

	t.Run("fetch failure has no stale fallback", func(t *testing.T) {
		f := &countingFetcher{}
		f.serve(keySet(t, publicKey(t, "k1")), nil)
		c, clock := newTestCache(t, f, WithCacheTTL(time.Minute))

		_, err := c.GetKey(context.Background(), "k1")
		require.NoError(t, err)

		clock.Advance(2 * time.Minute)
		f.serve(nil, errors.New("connection refused"))

		key, err := c.GetKey(context.Background(), "k1")
		assert.Nil(t, key)
		assert.ErrorIs(t, err, ErrFetchFailed)
		assert.ErrorContains(t, err, "connection refused")
	})

	t.Run("keys without kid are skipped", func(t *testing.T) {
		f := &countingFetcher{}
		f.serve(keySet(t, publicKey(t, ""), publicKey(t, "k1")), nil)
		c, _ := newTestCache(t, f)

		_, err := c.GetKey(context.Background(), "k1")
		require.NoError(t, err)
		assert.Equal(t, 1, c.Len())
	})

	t.Run("an empty key set is cached for the TTL", func(t *testing.T) {
		f := &countingFetcher{}
		f.serve(jwk.NewSet(), nil)
		c, _ := newTestCache(t, f, WithRefreshLimiter(NewIntervalLimiter(time.Hour)))

		for i := 0; i < 3; i++ {
			_, err := c.GetKey(context.Background(), "k1")
			assert.ErrorIs(t, err, ErrKeyNotFound)
		}
		// initial load + one forced refresh, then the limiter holds
		assert.EqualValues(t, 2, f.calls.Load())
	})

	t.Run("limiter can deny a forced refresh", func(t *testing.T) {
		f := &countingFetcher{}
		f.serve(keySet(t, publicKey(t, "k1")), nil)

		var hookReasons []string
		var hookErrs []error
		c, _ := newTestCache(t, f,
			WithRefreshLimiter(NewIntervalLimiter(time.Hour)),
			WithRefreshHook(func(reason string, err error) {
				hookReasons = append(hookReasons, reason)
				hookErrs = append(hookErrs, err)
			}),
		)

		_, err := c.GetKey(context.Background(), "k1")
		require.NoError(t, err)

		_, err = c.GetKey(context.Background(), "a")
		assert.ErrorIs(t, err, ErrKeyNotFound)
		_, err = c.GetKey(context.Background(), "b")
		assert.ErrorIs(t, err, ErrKeyNotFound)

		assert.EqualValues(t, 2, f.calls.Load())
		assert.Equal(t, []string{RefreshReasonExpired, RefreshReasonUnknownKey, RefreshReasonUnknownKey}, hookReasons)
		assert.NoError(t, hookErrs[0])
		assert.NoError(t, hookErrs[1])
		assert.ErrorIs(t, hookErrs[2], ErrRefreshDenied)
	})

	t.Run("cancelled context while waiting for a refresh", func(t *testing.T) {
		f := &countingFetcher{}
		f.serve(keySet(t, publicKey(t, "k1")), nil)
		c, _ := newTestCache(t, f)

		c.sem <- struct{}{} // simulate a refresh in flight
		defer func() { <-c.sem }()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := c.GetKey(ctx, "k1")
		assert.ErrorIs(t, err, ErrFetchFailed)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, f.calls.Load())
	})
}

func TestCache_Concurrency(t *testing.T) {
	t.Run("concurrent misses on an empty cache share one fetch", func(t *testing.T) {
		f := &countingFetcher{delay: 20 * time.Millisecond}
		f.serve(keySet(t, publicKey(t, "k1")), nil)
		c, _ := newTestCache(t, f)

		var wg sync.WaitGroup
		var failures atomic.Int32
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := c.GetKey(context.Background(), "k1"); err != nil {
					failures.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Zero(t, failures.Load())
		assert.EqualValues(t, 1, f.calls.Load())
	})

	t.Run("concurrent unknown kids share one forced refresh", func(t *testing.T) {
		f := &countingFetcher{delay: 20 * time.Millisecond}
		f.serve(keySet(t, publicKey(t, "k1")), nil)
		c, _ := newTestCache(t, f)

		_, err := c.GetKey(context.Background(), "k1")
		require.NoError(t, err)
		f.serve(keySet(t, publicKey(t, "k1"), publicKey(t, "k2")), nil)

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				key, err := c.GetKey(context.Background(), "k2")
				assert.NoError(t, err)
				if key != nil {
					assert.Equal(t, "k2", key.KeyID)
				}
			}()
		}
		wg.Wait()

		assert.EqualValues(t, 2, f.calls.Load())
	})
}

func TestNewCache(t *testing.T) {
	f := FetcherFunc(func(ctx context.Context) (jwk.Set, error) { return jwk.NewSet(), nil })

	t.Run("defaults", func(t *testing.T) {
		c, err := NewCache(f)
		require.NoError(t, err)
		assert.Equal(t, DefaultCacheTTL, c.ttl)
		assert.IsType(t, &IntervalLimiter{}, c.limiter)
		assert.Equal(t, 0, c.Len())
	})

	t.Run("fetcher is required", func(t *testing.T) {
		_, err := NewCache(nil)
		assert.EqualError(t, err, "fetcher is required")
	})

	t.Run("invalid options", func(t *testing.T) {
		_, err := NewCache(f, WithCacheTTL(-time.Second))
		assert.ErrorContains(t, err, "cache TTL cannot be negative")

		_, err = NewCache(f, WithLogger(nil))
		assert.ErrorContains(t, err, "logger cannot be nil")

		_, err = NewCache(f, WithRefreshHook(nil))
		assert.ErrorContains(t, err, "refresh hook cannot be nil")
	})

	t.Run("zero TTL selects the default", func(t *testing.T) {
		c, err := NewCache(f, WithCacheTTL(0))
		require.NoError(t, err)
		assert.Equal(t, DefaultCacheTTL, c.ttl)
	})
}

func TestCache_DefaultLimiter(t *testing.T) {
	f := &countingFetcher{}
	f.serve(keySet(t, publicKey(t, "k1")), nil)

	c, err := NewCache(f)
	require.NoError(t, err)
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c.now = clock.Now
	limiter, ok := c.limiter.(*IntervalLimiter)
	require.True(t, ok, "default limiter is an IntervalLimiter")
	limiter.now = clock.Now

	_, err = c.GetKey(context.Background(), "k1")
	require.NoError(t, err)

	_, err = c.GetKey(context.Background(), "forged")
	assert.ErrorIs(t, err, ErrKeyNotFound)
	assert.EqualValues(t, 2, f.calls.Load())

	f.serve(keySet(t, publicKey(t, "k1"), publicKey(t, "k2")), nil)

	clock.Advance(DefaultForcedRefreshInterval - time.Second)
	_, err = c.GetKey(context.Background(), "k2")
	assert.ErrorIs(t, err, ErrKeyNotFound, "refresh budget already spent on the forged kid")
	assert.EqualValues(t, 2, f.calls.Load())

	clock.Advance(time.Second)
	key, err := c.GetKey(context.Background(), "k2")
	require.NoError(t, err)
	assert.Equal(t, "k2", key.KeyID)
	assert.EqualValues(t, 3, f.calls.Load())
}
