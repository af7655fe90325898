package billetera

import (
	"encoding/json"
	"net/http"

	"github.com/billetera/billetera-api/core"
)

// ErrorHandler renders a failed request. err is usually a *core.Error.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// ErrorBody is the JSON envelope of every error response.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details"`
}

// NewErrorBody converts err into its status and envelope. Errors that are not
// a *core.Error become a 500 INTERNAL_SERVER_ERROR without leaking the cause.
func NewErrorBody(err error) (int, ErrorBody) {
	e := core.AsError(err)
	return e.Status, ErrorBody{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	}
}

// DefaultErrorHandler writes the {code, message, details} envelope. A
// WWW-Authenticate challenge is added to 401 responses.
func DefaultErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	status, body := NewErrorBody(err)

	w.Header().Set("Content-Type", "application/json")
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
