/*
Package core authenticates requests independently of any HTTP framework.

Authenticate runs a fixed, fail-fast pipeline:

	token == ""          -> ErrMissingToken
	Validator            -> signature, expiry, issuer, audience
	IdentityProvider     -> who-am-I lookup with the same token
	sub != user id       -> ErrTokenSubMismatch
	                     -> *Identity

The resulting Identity is immutable and is carried through the request with
WithIdentity and IdentityFromContext.

# Errors

All failures are *Error values with an HTTP status and a stable code. Use
errors.Is against the exported sentinels:

	identity, err := c.Authenticate(ctx, token)
	if errors.Is(err, core.ErrTokenExpired) {
	    // ask the client to refresh
	}

Errors compare by Code, so a sentinel decorated with With or WithMessage still
matches.
*/
package core
