package core

import (
	"context"
	"time"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey int

const (
	identityKey contextKey = iota
)

// Identity is the authenticated caller of one request. It is built once by
// Core.Authenticate and never mutated afterwards.
type Identity struct {
	userID       string
	accessToken  string
	email        string
	lastSignInAt *time.Time
	claims       any
}

// NewIdentity builds the Identity of an authenticated user.
func NewIdentity(user *User, token string, claims any) *Identity {
	id := &Identity{
		userID:      user.ID,
		accessToken: token,
		email:       user.Email,
		claims:      claims,
	}
	if user.LastSignInAt != nil {
		t := *user.LastSignInAt
		id.lastSignInAt = &t
	}
	return id
}

// UserID returns the authenticated user id.
func (i *Identity) UserID() string { return i.userID }

// AccessToken returns the bearer token the request was authenticated with.
func (i *Identity) AccessToken() string { return i.accessToken }

// Email returns the user's email as reported by the identity provider.
func (i *Identity) Email() string { return i.email }

// LastSignInAt returns a copy of the last sign-in time, if known.
func (i *Identity) LastSignInAt() *time.Time {
	if i.lastSignInAt == nil {
		return nil
	}
	t := *i.lastSignInAt
	return &t
}

// Claims returns the verified token claims as produced by the Validator.
func (i *Identity) Claims() any { return i.claims }

// WithIdentity stores the identity in the context.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromContext retrieves the identity stored by WithIdentity.
func IdentityFromContext(ctx context.Context) (*Identity, error) {
	identity, ok := ctx.Value(identityKey).(*Identity)
	if !ok || identity == nil {
		return nil, ErrIdentityNotFound
	}
	return identity, nil
}

// HasIdentity checks if an identity exists in the context without retrieving it.
func HasIdentity(ctx context.Context) bool {
	_, err := IdentityFromContext(ctx)
	return err == nil
}
