package validator

import (
	"errors"
	"strings"
)

var (
	// ErrMalformedToken is returned when a token is not a compact JWS.
	ErrMalformedToken = errors.New("token is not a compact JWS (header.payload.signature)")

	// ErrTokenTooLarge is returned for tokens above maxTokenBytes.
	ErrTokenTooLarge = errors.New("token exceeds maximum size")
)

// maxTokenBytes caps the token size before any decoding happens.
// Provider access tokens are around 1KB.
const maxTokenBytes = 16 * 1024

// validateTokenFormat rejects obviously malformed input before it reaches the
// JOSE parser.
func validateTokenFormat(tokenString string) error {
	if len(tokenString) > maxTokenBytes {
		return ErrTokenTooLarge
	}
	if strings.Count(tokenString, ".") != 2 {
		return ErrMalformedToken
	}
	for _, part := range strings.Split(tokenString, ".") {
		if part == "" {
			return ErrMalformedToken
		}
	}
	return nil
}
