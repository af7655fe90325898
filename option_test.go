package billetera

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_New_OptionsValidation(t *testing.T) {
	authCore, _ := newCore(t, nil)

	tests := []struct {
		name    string
		opts    []Option
		wantErr error
	}{
		{
			name:    "missing authenticator",
			opts:    []Option{},
			wantErr: ErrAuthenticatorNil,
		},
		{
			name:    "nil authenticator",
			opts:    []Option{WithAuthenticator(nil)},
			wantErr: ErrAuthenticatorNil,
		},
		{
			name: "valid minimal configuration",
			opts: []Option{WithAuthenticator(authCore)},
		},
		{
			name:    "nil error handler",
			opts:    []Option{WithAuthenticator(authCore), WithErrorHandler(nil)},
			wantErr: ErrErrorHandlerNil,
		},
		{
			name:    "nil token extractor",
			opts:    []Option{WithAuthenticator(authCore), WithTokenExtractor(nil)},
			wantErr: ErrTokenExtractorNil,
		},
		{
			name:    "empty exclusion list",
			opts:    []Option{WithAuthenticator(authCore), WithExclusionURLs(nil)},
			wantErr: ErrExclusionURLsEmpty,
		},
		{
			name:    "nil logger",
			opts:    []Option{WithAuthenticator(authCore), WithLogger(nil)},
			wantErr: ErrLoggerNil,
		},
		{
			name:    "nil metrics",
			opts:    []Option{WithAuthenticator(authCore), WithMetrics(nil)},
			wantErr: ErrMetricsNil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := New(tt.opts...)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, m)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, m.errorHandler)
			assert.NotNil(t, m.tokenExtractor)
			assert.Equal(t, NoopMetrics{}, m.metrics)
			assert.True(t, m.validateOnOptions)
		})
	}
}

func Test_WithExclusionURLs(t *testing.T) {
	authCore, _ := newCore(t, nil)
	m, err := New(
		WithAuthenticator(authCore),
		WithExclusionURLs([]string{"/health", "http://example.com/metrics"}),
	)
	require.NoError(t, err)

	assert.True(t, m.exclusionURLHandler(httptest.NewRequest(http.MethodGet, "/health", nil)))
	assert.True(t, m.exclusionURLHandler(httptest.NewRequest(http.MethodGet, "http://example.com/metrics", nil)))
	assert.False(t, m.exclusionURLHandler(httptest.NewRequest(http.MethodGet, "/health/deep", nil)))
}
