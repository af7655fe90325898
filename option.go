package billetera

import (
	"errors"
	"net/http"
)

// Option configures the Middleware.
// Returns error for validation failures.
type Option func(*Middleware) error

// WithAuthenticator sets the authentication engine (REQUIRED).
func WithAuthenticator(a Authenticator) Option {
	return func(m *Middleware) error {
		if a == nil {
			return ErrAuthenticatorNil
		}
		m.authenticator = a
		return nil
	}
}

// WithValidateOnOptions sets whether OPTIONS requests are authenticated.
//
// Default: true
func WithValidateOnOptions(value bool) Option {
	return func(m *Middleware) error {
		m.validateOnOptions = value
		return nil
	}
}

// WithErrorHandler sets the handler called when authentication fails. It is
// used by both Handler and Gin.
//
// Default: DefaultErrorHandler (GinErrorHandler under gin)
func WithErrorHandler(h ErrorHandler) Option {
	return func(m *Middleware) error {
		if h == nil {
			return ErrErrorHandlerNil
		}
		m.errorHandler = h
		return nil
	}
}

// WithTokenExtractor sets the function to extract the token from the request.
//
// Default: AuthHeaderTokenExtractor
func WithTokenExtractor(e TokenExtractor) Option {
	return func(m *Middleware) error {
		if e == nil {
			return ErrTokenExtractorNil
		}
		m.tokenExtractor = e
		return nil
	}
}

// WithExclusionURLs skips authentication for the given paths or full URLs.
func WithExclusionURLs(exclusions []string) Option {
	return func(m *Middleware) error {
		if len(exclusions) == 0 {
			return ErrExclusionURLsEmpty
		}
		m.exclusionURLHandler = func(r *http.Request) bool {
			for _, exclusion := range exclusions {
				if r.URL.Path == exclusion || r.URL.String() == exclusion {
					return true
				}
			}
			return false
		}
		return nil
	}
}

// WithLogger sets an optional logger for the middleware.
func WithLogger(logger Logger) Option {
	return func(m *Middleware) error {
		if logger == nil {
			return ErrLoggerNil
		}
		m.logger = logger
		return nil
	}
}

// WithMetrics records authentication outcomes.
//
// Default: NoopMetrics
func WithMetrics(metrics Metrics) Option {
	return func(m *Middleware) error {
		if metrics == nil {
			return ErrMetricsNil
		}
		m.metrics = metrics
		return nil
	}
}

// Sentinel errors for configuration validation
var (
	ErrAuthenticatorNil   = errors.New("authenticator cannot be nil (use WithAuthenticator)")
	ErrErrorHandlerNil    = errors.New("errorHandler cannot be nil")
	ErrTokenExtractorNil  = errors.New("tokenExtractor cannot be nil")
	ErrExclusionURLsEmpty = errors.New("exclusion URLs list cannot be empty")
	ErrLoggerNil          = errors.New("logger cannot be nil")
	ErrMetricsNil         = errors.New("metrics cannot be nil")
)
