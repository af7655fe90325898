// Package core turns a raw bearer token into an authenticated Identity.
//
// Core composes a token Validator with an IdentityProvider ("who am I")
// lookup and cross-checks that both agree on the user. It has no dependency on
// any transport, so the net/http and gin adapters in the root package share it.
package core

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const tracerName = "github.com/billetera/billetera-api/core"

// Validator verifies a signed bearer token.
// On success the returned claims must implement SubjectClaims.
type Validator interface {
	ValidateToken(ctx context.Context, token string) (any, error)
}

// SubjectClaims is the part of the verified claims Core relies on.
type SubjectClaims interface {
	GetSubject() string
}

// IdentityProvider resolves the user that owns a token.
type IdentityProvider interface {
	GetUser(ctx context.Context, token string) (*User, error)
}

// User is the identity provider's view of the token owner.
type User struct {
	ID           string
	Email        string
	LastSignInAt *time.Time
}

// Logger defines an optional logging interface for the core.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Core is the framework-agnostic authentication engine.
type Core struct {
	validator Validator
	provider  IdentityProvider
	logger    Logger
}

// Authenticate builds the Identity for token. It fails fast:
//   - empty token returns ErrMissingToken without calling the validator
//   - validator errors are returned unchanged
//   - identity provider errors are returned unchanged
//   - a subject that differs from the provider's user id returns ErrTokenSubMismatch
//
// A nil Identity is returned with every error.
func (c *Core) Authenticate(ctx context.Context, token string) (*Identity, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "core.Authenticate")
	defer span.End()

	identity, err := c.authenticate(ctx, token)
	if err != nil {
		e := AsError(err)
		span.SetAttributes(attribute.String("auth.error_code", e.Code))
		span.SetStatus(codes.Error, e.Message)
		return nil, err
	}

	span.SetAttributes(attribute.String("auth.user_id", identity.UserID()))
	return identity, nil
}

func (c *Core) authenticate(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		c.warn("No bearer token provided")
		return nil, ErrMissingToken
	}

	start := time.Now()
	raw, err := c.validator.ValidateToken(ctx, token)
	if err != nil {
		c.warn("Token validation failed", "error", err, "duration", time.Since(start))
		return nil, err
	}

	claims, ok := raw.(SubjectClaims)
	if !ok {
		c.logError("Validator returned claims without a subject accessor")
		return nil, ErrInvalidToken
	}

	user, err := c.provider.GetUser(ctx, token)
	if err != nil {
		c.warn("Identity lookup failed", "error", err)
		return nil, err
	}

	subject := claims.GetSubject()
	if subject == "" || subject != user.ID {
		c.warn("Token subject does not match identity", "sub", subject, "user_id", user.ID)
		return nil, ErrTokenSubMismatch
	}

	if c.logger != nil {
		c.logger.Debug("Request authenticated", "user_id", user.ID, "duration", time.Since(start))
	}

	return NewIdentity(user, token, raw), nil
}

func (c *Core) warn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}

func (c *Core) logError(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Error(msg, args...)
	}
}
