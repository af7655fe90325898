package billetera

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/billetera/billetera-api/core"
)

func TestDefaultErrorHandler(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantStatus    int
		wantBody      string
		wantChallenge bool
	}{
		{
			name:          "unknown key id carries its kid",
			err:           core.ErrUnknownKeyID.With(map[string]any{"kid": "k9"}, nil),
			wantStatus:    http.StatusUnauthorized,
			wantBody:      `{"code":"UNKNOWN_KEY_ID","message":"Signing key not found","details":{"kid":"k9"}}`,
			wantChallenge: true,
		},
		{
			name:       "provider outage",
			err:        core.ErrProviderUnavailable.With(nil, errors.New("dial tcp: refused")),
			wantStatus: http.StatusBadGateway,
			wantBody:   `{"code":"AUTH_PROVIDER_UNAVAILABLE","message":"Authentication provider is unavailable","details":null}`,
		},
		{
			name:       "foreign errors do not leak",
			err:        errors.New("database password is hunter2"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"code":"INTERNAL_SERVER_ERROR","message":"Internal server error","details":null}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			DefaultErrorHandler(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Equal(t, tt.wantChallenge, rec.Header().Get("WWW-Authenticate") != "")
		})
	}
}
