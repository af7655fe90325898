/*
Package jwks caches the identity provider's JSON Web Key Set.

The Cache maps key ids to public keys and is the only state shared between
concurrent requests. It refreshes lazily:

  - on the first lookup, and whenever the TTL (default 300s) has elapsed
  - once more when a kid is not in the current snapshot

A refresh downloads the whole key set and replaces the previous snapshot
atomically. Concurrent callers that miss at the same time wait for the same
fetch instead of issuing their own. If the download fails the lookup fails;
expired keys are never reused.

# Forced refresh limiting

Tokens with fabricated kids would otherwise trigger a fetch each. Forced
refreshes therefore pass through a RefreshLimiter:

	local := jwks.NewIntervalLimiter(10 * time.Second)
	fleet := jwks.NewRedisLimiter(rdb, 30, time.Minute)

	cache, err := jwks.NewCache(fetcher,
	    jwks.WithRefreshLimiter(jwks.ChainLimiter{local, fleet}),
	)

A denied forced refresh reports the kid as unknown. When Redis is unreachable
the RedisLimiter allows the refresh, or defers to WithFallback if one is set.
*/
package jwks
