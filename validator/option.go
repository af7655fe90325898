package validator

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Option is how options for the Validator are set up.
// Options return errors to enable validation during construction.
type Option func(*Validator) error

// WithIssuer sets the expected issuer claim (iss).
func WithIssuer(issuer string) Option {
	return func(v *Validator) error {
		if issuer == "" {
			return errors.New("issuer cannot be empty")
		}
		v.issuer = issuer
		return nil
	}
}

// WithBaseURL derives the expected issuer from the provider's project URL,
// "<base>/auth/v1". An issuer set with WithIssuer takes precedence.
func WithBaseURL(baseURL string) Option {
	return func(v *Validator) error {
		u, err := url.Parse(baseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid base URL %q", baseURL)
		}
		if v.issuer == "" {
			v.issuer = IssuerFromBaseURL(baseURL)
		}
		return nil
	}
}

// WithAudience sets the audience that must be a member of the aud claim.
// An empty audience disables the check.
func WithAudience(audience string) Option {
	return func(v *Validator) error {
		v.audience = audience
		return nil
	}
}

// WithAllowedClockSkew sets the allowed clock skew for exp and nbf.
// If not set, the default is 0 (no clock skew allowed).
func WithAllowedClockSkew(skew time.Duration) Option {
	return func(v *Validator) error {
		if skew < 0 {
			return errors.New("clock skew cannot be negative")
		}
		v.allowedClockSkew = skew
		return nil
	}
}
