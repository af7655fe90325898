/*
Package billetera provides the authentication middleware of the Billetera API
together with the logging, metrics and tracing adapters the service shares.

The middleware is a thin transport adapter over core.Core. For every request it
extracts the bearer token, asks the core to authenticate it and stores the
resulting *core.Identity in the request context. The core in turn verifies the
token against the provider's signing keys (package jwks and package validator)
and confirms the user with the provider's "who am I" endpoint.

# Quick Start

	gt, _ := gotrue.New(cfg.BaseURL(), cfg.SupabaseAnonKey.Reveal())

	keys, _ := jwks.NewCache(gt, jwks.WithCacheTTL(cfg.JWKSCacheTTL()))

	v, _ := validator.New(keys,
	    validator.WithIssuer(cfg.Issuer()),
	    validator.WithAudience(cfg.JWTAudience),
	)

	authCore, _ := core.New(
	    core.WithValidator(v),
	    core.WithIdentityProvider(gt),
	)

	m, err := billetera.New(billetera.WithAuthenticator(authCore))
	if err != nil {
	    log.Fatal(err)
	}

	http.Handle("/api/", m.CheckToken(apiHandler))

With gin, use m.Gin() instead of CheckToken.

# Accessing the Identity

	func apiHandler(w http.ResponseWriter, r *http.Request) {
	    identity, err := billetera.IdentityFromContext(r.Context())
	    if err != nil {
	        // only reachable without the middleware
	    }
	    fmt.Fprintln(w, identity.UserID())
	}

# Errors

Every failure is a *core.Error and is rendered as

	{"code": "TOKEN_EXPIRED", "message": "Access token expired", "details": null}

with the error's status. Authentication failures are 401 and carry a
WWW-Authenticate challenge; provider outages are 502. A malformed
Authorization header counts as a missing token.

# Observability

NewLogger builds a zap, zerolog or logrus logger behind the slog-shaped Logger
interface. PrometheusMetrics keeps its own registry and is exposed through
Handler. NewTracerProvider installs the OpenTelemetry SDK globally so the spans
opened by core, jwks, validator and the data clients are exported.
*/
package billetera
