package billetera

import (
	"errors"
	"net/http"
	"strings"
)

// TokenExtractor is a function that takes a request as input and returns
// either a token or an error. An error should only be returned if an attempt
// to specify a token was found, but the information was somehow incorrectly
// formed. In the case where a token is simply not present, this should not
// be treated as an error. An empty string should be returned in that case.
type TokenExtractor func(r *http.Request) (string, error)

// ErrMalformedAuthHeader is returned for an Authorization header that is not
// "Bearer <token>".
var ErrMalformedAuthHeader = errors.New("Authorization header format must be Bearer {token}")

// AuthHeaderTokenExtractor extracts the token from the Authorization header.
// The scheme is matched case-insensitively.
func AuthHeaderTokenExtractor(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", nil
	}

	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", ErrMalformedAuthHeader
	}

	return parts[1], nil
}
