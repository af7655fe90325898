package billetera

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/billetera/billetera-api/core"
)

type subjectClaims string

func (s subjectClaims) GetSubject() string { return string(s) }

type stubValidator struct {
	err   error
	calls int
}

func (v *stubValidator) ValidateToken(_ context.Context, token string) (any, error) {
	v.calls++
	if v.err != nil {
		return nil, v.err
	}
	return subjectClaims("user-1"), nil
}

type stubProvider struct{}

func (stubProvider) GetUser(context.Context, string) (*core.User, error) {
	return &core.User{ID: "user-1", Email: "ana@example.com"}, nil
}

// newCore returns a core whose validator fails with validateErr when set.
func newCore(t *testing.T, validateErr error) (*core.Core, *stubValidator) {
	t.Helper()

	v := &stubValidator{err: validateErr}
	c, err := core.New(
		core.WithValidator(v),
		core.WithIdentityProvider(stubProvider{}),
	)
	require.NoError(t, err)
	return c, v
}

type recordedAuth struct {
	codes []string
}

type recordingMetrics struct {
	NoopMetrics
	auth *recordedAuth
}

func newRecordingMetrics() recordingMetrics {
	return recordingMetrics{auth: &recordedAuth{}}
}

func (m recordingMetrics) ObserveAuth(code string, _ time.Duration) {
	m.auth.codes = append(m.auth.codes, code)
}
