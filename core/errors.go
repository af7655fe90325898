package core

import (
	"errors"
	"net/http"
)

// Error is the single error shape surfaced by the API. Every failure on the
// authentication path maps to exactly one Code, and the HTTP layer renders
// {code, message, details} with Status.
type Error struct {
	// Status is the HTTP status code the error is rendered with.
	Status int

	// Code is a machine-readable error code (e.g. "TOKEN_EXPIRED").
	Code string

	// Message is a human-readable error message.
	Message string

	// Details is an optional JSON-serializable payload.
	Details any

	// Err is the underlying cause, if any. It is never rendered.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Code + ": " + e.Message
}

// Unwrap returns the underlying cause for error unwrapping.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same Code, so errors built
// from a sentinel with With still match the sentinel under errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// With returns a copy of e carrying the given details and cause.
func (e *Error) With(details any, cause error) *Error {
	cp := *e
	cp.Details = details
	cp.Err = cause
	return &cp
}

// WithMessage returns a copy of e with a different message.
func (e *Error) WithMessage(message string) *Error {
	cp := *e
	cp.Message = message
	return &cp
}

// NewError creates a new Error.
func NewError(status int, code, message string, details any) *Error {
	return &Error{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

// AsError extracts an *Error from err. Errors that are not an *Error are
// reported as ErrInternal wrapping the original cause.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return ErrInternal.With(nil, err)
}

// Error codes.
const (
	CodeMissingToken        = "MISSING_TOKEN"
	CodeInvalidToken        = "INVALID_TOKEN"
	CodeInvalidTokenHeader  = "INVALID_TOKEN_HEADER"
	CodeUnknownKeyID        = "UNKNOWN_KEY_ID"
	CodeInvalidSignature    = "INVALID_SIGNATURE"
	CodeTokenExpired        = "TOKEN_EXPIRED"
	CodeTokenNotYetValid    = "TOKEN_NOT_YET_VALID"
	CodeInvalidIssuer       = "INVALID_ISSUER"
	CodeInvalidAudience     = "INVALID_AUDIENCE"
	CodeTokenSubMismatch    = "TOKEN_SUB_MISMATCH"
	CodeProviderUnavailable = "AUTH_PROVIDER_UNAVAILABLE"
	CodeInvalidAuthUser     = "INVALID_AUTH_USER"
	CodeInternal            = "INTERNAL_SERVER_ERROR"
	CodeValidation          = "VALIDATION_ERROR"
	CodeHTTP                = "HTTP_ERROR"
	CodeIdentityNotFound    = "IDENTITY_NOT_FOUND"
	CodeConfigInvalid       = "CONFIG_INVALID"
)

// Sentinel errors for the authentication path.
var (
	ErrMissingToken = NewError(http.StatusUnauthorized, CodeMissingToken,
		"Missing bearer token", nil)
	ErrInvalidToken = NewError(http.StatusUnauthorized, CodeInvalidToken,
		"Invalid access token", nil)
	ErrInvalidTokenHeader = NewError(http.StatusUnauthorized, CodeInvalidTokenHeader,
		"Invalid token header", nil)
	ErrUnknownKeyID = NewError(http.StatusUnauthorized, CodeUnknownKeyID,
		"Signing key not found", nil)
	ErrInvalidSignature = NewError(http.StatusUnauthorized, CodeInvalidSignature,
		"Invalid token signature", nil)
	ErrTokenExpired = NewError(http.StatusUnauthorized, CodeTokenExpired,
		"Access token expired", nil)
	ErrTokenNotYetValid = NewError(http.StatusUnauthorized, CodeTokenNotYetValid,
		"Access token is not valid yet", nil)
	ErrInvalidIssuer = NewError(http.StatusUnauthorized, CodeInvalidIssuer,
		"Invalid token issuer", nil)
	ErrInvalidAudience = NewError(http.StatusUnauthorized, CodeInvalidAudience,
		"Invalid token audience", nil)
	ErrTokenSubMismatch = NewError(http.StatusUnauthorized, CodeTokenSubMismatch,
		"Token subject does not match authenticated user", nil)

	ErrProviderUnavailable = NewError(http.StatusBadGateway, CodeProviderUnavailable,
		"Authentication provider is unavailable", nil)
	ErrInvalidAuthUser = NewError(http.StatusBadGateway, CodeInvalidAuthUser,
		"Authentication provider returned an invalid user", nil)

	ErrInternal = NewError(http.StatusInternalServerError, CodeInternal,
		"Internal server error", nil)
	ErrValidation = NewError(http.StatusUnprocessableEntity, CodeValidation,
		"Request validation failed.", nil)

	// ErrIdentityNotFound is returned when no identity is stored in the context.
	ErrIdentityNotFound = NewError(http.StatusUnauthorized, CodeIdentityNotFound,
		"No authenticated identity in context", nil)
)
