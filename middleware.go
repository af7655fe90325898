package billetera

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/billetera/billetera-api/core"
)

// Authenticator turns a bearer token into an Identity. *core.Core implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*core.Identity, error)
}

// Logger defines an optional logging interface compatible with log/slog.
// This is the same interface used by core and jwks for consistent logging
// across the stack.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// ExclusionURLHandler reports whether a request skips authentication.
type ExclusionURLHandler func(r *http.Request) bool

// Middleware authenticates requests and stores the resulting core.Identity in
// the request context. It is shared by the net/http and gin adapters.
type Middleware struct {
	authenticator       Authenticator
	errorHandler        ErrorHandler
	ginErrorHandler     func(*gin.Context, error)
	tokenExtractor      TokenExtractor
	validateOnOptions   bool
	exclusionURLHandler ExclusionURLHandler
	logger              Logger
	metrics             Metrics
}

// New constructs a Middleware. WithAuthenticator is required.
//
// Example:
//
//	m, err := billetera.New(
//	    billetera.WithAuthenticator(authCore),
//	    billetera.WithLogger(logger),
//	)
//	if err != nil {
//	    log.Fatalf("failed to create middleware: %v", err)
//	}
func New(opts ...Option) (*Middleware, error) {
	m := &Middleware{
		validateOnOptions: true,
	}

	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if m.authenticator == nil {
		return nil, fmt.Errorf("invalid middleware configuration: %w", ErrAuthenticatorNil)
	}

	if m.errorHandler == nil {
		m.errorHandler = DefaultErrorHandler
		m.ginErrorHandler = GinErrorHandler
	} else {
		m.ginErrorHandler = ginAdapter(m.errorHandler)
	}
	if m.tokenExtractor == nil {
		m.tokenExtractor = AuthHeaderTokenExtractor
	}
	if m.metrics == nil {
		m.metrics = NoopMetrics{}
	}
	return m, nil
}

// IdentityFromContext returns the identity stored by the middleware.
func IdentityFromContext(ctx context.Context) (*core.Identity, error) {
	return core.IdentityFromContext(ctx)
}

// MustIdentity returns the identity stored by the middleware or panics.
// Use only behind the middleware.
func MustIdentity(ctx context.Context) *core.Identity {
	identity, err := core.IdentityFromContext(ctx)
	if err != nil {
		panic(err)
	}
	return identity
}

// CheckToken authenticates every request before passing it to next.
// Failures are rendered by the configured ErrorHandler and stop the chain.
func (m *Middleware) CheckToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.skip(r) {
			next.ServeHTTP(w, r)
			return
		}

		identity, err := m.authenticate(r)
		if err != nil {
			m.errorHandler(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(core.WithIdentity(r.Context(), identity)))
	})
}

func (m *Middleware) skip(r *http.Request) bool {
	if m.exclusionURLHandler != nil && m.exclusionURLHandler(r) {
		m.debug("skipping authentication for excluded URL", "method", r.Method, "path", r.URL.Path)
		return true
	}
	if !m.validateOnOptions && r.Method == http.MethodOptions {
		m.debug("skipping authentication for OPTIONS request")
		return true
	}
	return false
}

// authenticate runs extraction and the core flow and records the outcome.
func (m *Middleware) authenticate(r *http.Request) (*core.Identity, error) {
	start := time.Now()

	identity, err := m.extractAndAuthenticate(r)
	code := "OK"
	if err != nil {
		code = core.AsError(err).Code
		if m.logger != nil {
			m.logger.Warn("authentication failed",
				"code", code,
				"error", err,
				"method", r.Method,
				"path", r.URL.Path)
		}
	}
	m.metrics.ObserveAuth(code, time.Since(start))
	return identity, err
}

func (m *Middleware) extractAndAuthenticate(r *http.Request) (*core.Identity, error) {
	token, err := m.tokenExtractor(r)
	if err != nil {
		// A header that is present but unusable carries no token.
		return nil, core.ErrMissingToken.With(nil, fmt.Errorf("error extracting token: %w", err))
	}
	return m.authenticator.Authenticate(r.Context(), token)
}

func (m *Middleware) debug(msg string, args ...any) {
	if m.logger != nil {
		m.logger.Debug(msg, args...)
	}
}
