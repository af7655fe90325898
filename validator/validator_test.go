package validator

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billetera/billetera-api/core"
	"github.com/billetera/billetera-api/jwks"
)

const (
	testIssuer   = "https://abc.supabase.co/auth/v1"
	testAudience = "authenticated"
	testSubject  = "user-42"
)

// signer holds an RSA key pair published under kid.
type signer struct {
	kid     string
	private *rsa.PrivateKey
	public  jwk.Key
}

func newSigner(t *testing.T, kid string) *signer {
	t.Helper()

	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	pub, err := jwk.Import(priv.Public())
	require.NoError(t, err)
	require.NoError(t, pub.Set(jwk.KeyIDKey, kid))
	require.NoError(t, pub.Set(jwk.AlgorithmKey, jwa.RS256()))

	return &signer{kid: kid, private: priv, public: pub}
}

func (s *signer) sign(t *testing.T, claims map[string]any) string {
	t.Helper()

	payload, err := json.Marshal(claims)
	require.NoError(t, err)

	hdrs := jws.NewHeaders()
	require.NoError(t, hdrs.Set(jws.KeyIDKey, s.kid))

	signed, err := jws.Sign(payload, jws.WithKey(jwa.RS256(), s.private, jws.WithProtectedHeaders(hdrs)))
	require.NoError(t, err)
	return string(signed)
}

func (s *signer) signingKey() *jwks.SigningKey {
	return &jwks.SigningKey{KeyID: s.kid, Algorithm: "RS256", Key: s.public}
}

// mapResolver is a KeyResolver over a fixed set of keys.
type mapResolver struct {
	calls atomic.Int32
	keys  map[string]*jwks.SigningKey
	err   error
}

func (m *mapResolver) GetKey(_ context.Context, kid string) (*jwks.SigningKey, error) {
	m.calls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	key, ok := m.keys[kid]
	if !ok {
		return nil, jwks.ErrKeyNotFound
	}
	return key, nil
}

func validClaims(now time.Time) map[string]any {
	return map[string]any{
		"iss":   testIssuer,
		"sub":   testSubject,
		"aud":   testAudience,
		"exp":   now.Add(time.Hour).Unix(),
		"iat":   now.Unix(),
		"email": "ana@example.com",
		"role":  "authenticated",
	}
}

func with(claims map[string]any, key string, value any) map[string]any {
	out := make(map[string]any, len(claims))
	for k, v := range claims {
		out[k] = v
	}
	if value == nil {
		delete(out, key)
	} else {
		out[key] = value
	}
	return out
}

func segment(v string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(v))
}

func TestValidator_ValidateToken(t *testing.T) {
	now := time.Now()
	k1 := newSigner(t, "k1")
	other := newSigner(t, "k1") // same kid, different key material

	resolver := &mapResolver{keys: map[string]*jwks.SigningKey{"k1": k1.signingKey()}}
	v, err := New(resolver, WithIssuer(testIssuer), WithAudience(testAudience))
	require.NoError(t, err)

	testCases := []struct {
		name         string
		token        string
		expectedCode string
		checkClaims  func(t *testing.T, c *Claims)
	}{
		{
			name:  "it successfully validates a token",
			token: k1.sign(t, validClaims(now)),
			checkClaims: func(t *testing.T, c *Claims) {
				assert.Equal(t, testSubject, c.Subject)
				assert.Equal(t, testIssuer, c.Issuer)
				assert.Equal(t, Audience{testAudience}, c.Audience)
				assert.Equal(t, "ana@example.com", c.Email)
				assert.Equal(t, now.Add(time.Hour).Unix(), c.ExpiresAt.Unix())
			},
		},
		{
			name:  "audience list passes on membership",
			token: k1.sign(t, with(validClaims(now), "aud", []string{"authenticated", "other"})),
			checkClaims: func(t *testing.T, c *Claims) {
				assert.Equal(t, Audience{"authenticated", "other"}, c.Audience)
			},
		},
		{
			name:  "far-future exp beyond int64 seconds is still valid",
			token: k1.sign(t, with(validClaims(now), "exp", 9.3e18)),
			checkClaims: func(t *testing.T, c *Claims) {
				assert.True(t, c.ExpiresAt.After(now))
			},
		},
		{
			name:         "missing aud fails when an audience is expected",
			token:        k1.sign(t, with(validClaims(now), "aud", nil)),
			expectedCode: core.CodeInvalidAudience,
		},
		{
			name:         "wrong audience",
			token:        k1.sign(t, with(validClaims(now), "aud", "anon")),
			expectedCode: core.CodeInvalidAudience,
		},
		{
			name:         "expired token",
			token:        k1.sign(t, with(validClaims(now), "exp", now.Add(-time.Minute).Unix())),
			expectedCode: core.CodeTokenExpired,
		},
		{
			name:         "missing exp counts as expired",
			token:        k1.sign(t, with(validClaims(now), "exp", nil)),
			expectedCode: core.CodeTokenExpired,
		},
		{
			name:         "nbf in the future",
			token:        k1.sign(t, with(validClaims(now), "nbf", now.Add(time.Hour).Unix())),
			expectedCode: core.CodeTokenNotYetValid,
		},
		{
			name:  "nbf in the past is fine",
			token: k1.sign(t, with(validClaims(now), "nbf", now.Add(-time.Hour).Unix())),
		},
		{
			name:         "wrong issuer",
			token:        k1.sign(t, with(validClaims(now), "iss", "https://evil.example.com/auth/v1")),
			expectedCode: core.CodeInvalidIssuer,
		},
		{
			name:         "signed by a different key under the same kid",
			token:        other.sign(t, validClaims(now)),
			expectedCode: core.CodeInvalidSignature,
		},
		{
			name: "tampered payload",
			token: func() string {
				parts := strings.Split(k1.sign(t, validClaims(now)), ".")
				forged, _ := json.Marshal(with(validClaims(now), "sub", "admin"))
				return parts[0] + "." + base64.RawURLEncoding.EncodeToString(forged) + "." + parts[2]
			}(),
			expectedCode: core.CodeInvalidSignature,
		},
		{
			name:         "unknown kid",
			token:        newSigner(t, "k9").sign(t, validClaims(now)),
			expectedCode: core.CodeUnknownKeyID,
		},
		{
			name:         "not a JWS at all",
			token:        "definitely-not-a-token",
			expectedCode: core.CodeInvalidToken,
		},
		{
			name:         "payload is not a JSON object",
			token:        segment(`{"alg":"RS256","kid":"k1"}`) + "." + segment(`["a","b"]`) + "." + segment("sig"),
			expectedCode: core.CodeInvalidToken,
		},
		{
			name:         "symmetric algorithm is rejected",
			token:        segment(`{"alg":"HS256","kid":"k1","typ":"JWT"}`) + "." + segment(`{"sub":"user-42"}`) + "." + segment("sig"),
			expectedCode: core.CodeInvalidTokenHeader,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			got, err := v.ValidateToken(context.Background(), testCase.token)
			if testCase.expectedCode != "" {
				require.Error(t, err)
				assert.Nil(t, got)
				assert.Equal(t, testCase.expectedCode, core.AsError(err).Code)
				assert.Equal(t, http.StatusUnauthorized, core.AsError(err).Status)
				return
			}

			require.NoError(t, err)
			claims, ok := got.(*Claims)
			require.True(t, ok, "expected *Claims, got %T", got)
			if testCase.checkClaims != nil {
				testCase.checkClaims(t, claims)
			}
		})
	}
}

func TestValidator_HeaderChecksRunBeforeKeyLookup(t *testing.T) {
	t.Run("missing kid fails without touching the key set", func(t *testing.T) {
		priv, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)

		payload, err := json.Marshal(validClaims(time.Now()))
		require.NoError(t, err)
		token, err := jws.Sign(payload, jws.WithKey(jwa.RS256(), priv))
		require.NoError(t, err)

		resolver := &mapResolver{}
		v, err := New(resolver, WithIssuer(testIssuer))
		require.NoError(t, err)

		_, err = v.ValidateToken(context.Background(), string(token))
		assert.ErrorIs(t, err, core.ErrInvalidTokenHeader)
		assert.Zero(t, resolver.calls.Load())
	})

	t.Run("key algorithm must match the header", func(t *testing.T) {
		k1 := newSigner(t, "k1")
		key := k1.signingKey()
		key.Algorithm = "ES256"

		v, err := New(&mapResolver{keys: map[string]*jwks.SigningKey{"k1": key}}, WithIssuer(testIssuer))
		require.NoError(t, err)

		_, err = v.ValidateToken(context.Background(), k1.sign(t, validClaims(time.Now())))
		assert.ErrorIs(t, err, core.ErrInvalidSignature)
	})

	t.Run("key set failures surface as provider errors", func(t *testing.T) {
		k1 := newSigner(t, "k1")
		resolver := &mapResolver{err: jwks.ErrFetchFailed}

		v, err := New(resolver, WithIssuer(testIssuer))
		require.NoError(t, err)

		_, err = v.ValidateToken(context.Background(), k1.sign(t, validClaims(time.Now())))
		assert.ErrorIs(t, err, core.ErrProviderUnavailable)
		assert.Equal(t, http.StatusBadGateway, core.AsError(err).Status)
	})
}

func TestValidator_ClockSkew(t *testing.T) {
	k1 := newSigner(t, "k1")
	resolver := &mapResolver{keys: map[string]*jwks.SigningKey{"k1": k1.signingKey()}}
	now := time.Now()

	v, err := New(resolver, WithIssuer(testIssuer), WithAllowedClockSkew(time.Minute))
	require.NoError(t, err)

	_, err = v.ValidateToken(context.Background(), k1.sign(t, with(validClaims(now), "exp", now.Add(-30*time.Second).Unix())))
	assert.NoError(t, err)

	_, err = v.ValidateToken(context.Background(), k1.sign(t, with(validClaims(now), "nbf", now.Add(30*time.Second).Unix())))
	assert.NoError(t, err)

	_, err = v.ValidateToken(context.Background(), k1.sign(t, with(validClaims(now), "exp", now.Add(-2*time.Minute).Unix())))
	assert.ErrorIs(t, err, core.ErrTokenExpired)
}

func TestValidator_AudienceOptional(t *testing.T) {
	k1 := newSigner(t, "k1")
	resolver := &mapResolver{keys: map[string]*jwks.SigningKey{"k1": k1.signingKey()}}

	v, err := New(resolver, WithIssuer(testIssuer))
	require.NoError(t, err)

	_, err = v.ValidateToken(context.Background(), k1.sign(t, with(validClaims(time.Now()), "aud", nil)))
	assert.NoError(t, err)
}

func TestValidator_WithKeySetCache(t *testing.T) {
	k1 := newSigner(t, "k1")
	set := jwk.NewSet()
	require.NoError(t, set.AddKey(k1.public))
	body, err := json.Marshal(set)
	require.NoError(t, err)

	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		time.Sleep(10 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	defer server.Close()

	newValidator := func(t *testing.T) *Validator {
		cache, err := jwks.NewCache(jwks.NewHTTPFetcher(server.URL+"/auth/v1/.well-known/jwks.json", nil))
		require.NoError(t, err)
		v, err := New(cache, WithBaseURL("https://abc.supabase.co"), WithAudience(testAudience))
		require.NoError(t, err)
		return v
	}

	t.Run("empty cache: one fetch, then claims", func(t *testing.T) {
		requests.Store(0)
		v := newValidator(t)

		got, err := v.ValidateToken(context.Background(), k1.sign(t, validClaims(time.Now())))
		require.NoError(t, err)
		assert.Equal(t, testSubject, got.(*Claims).Subject)
		assert.EqualValues(t, 1, requests.Load())
	})

	t.Run("concurrent verifications on a cold cache fetch once", func(t *testing.T) {
		requests.Store(0)
		v := newValidator(t)
		token := k1.sign(t, validClaims(time.Now()))

		var wg sync.WaitGroup
		var failures atomic.Int32
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := v.ValidateToken(context.Background(), token); err != nil {
					failures.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Zero(t, failures.Load())
		assert.EqualValues(t, 1, requests.Load())
	})

	t.Run("unknown kid forces one refresh then fails", func(t *testing.T) {
		requests.Store(0)
		v := newValidator(t)

		_, err := v.ValidateToken(context.Background(), k1.sign(t, validClaims(time.Now())))
		require.NoError(t, err)

		_, err = v.ValidateToken(context.Background(), newSigner(t, "k2").sign(t, validClaims(time.Now())))
		assert.ErrorIs(t, err, core.ErrUnknownKeyID)
		assert.EqualValues(t, 2, requests.Load())
	})

	t.Run("an expired token fails even with a valid signature", func(t *testing.T) {
		v := newValidator(t)
		now := time.Now()
		_, err := v.ValidateToken(context.Background(), k1.sign(t, with(validClaims(now), "exp", now.Add(-time.Second).Unix())))
		assert.ErrorIs(t, err, core.ErrTokenExpired)
	})
}

func TestValidator_ECDSAKeys(t *testing.T) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	pub, err := jwk.Import(priv.Public())
	require.NoError(t, err)

	payload, err := json.Marshal(validClaims(time.Now()))
	require.NoError(t, err)
	hdrs := jws.NewHeaders()
	require.NoError(t, hdrs.Set(jws.KeyIDKey, "ec1"))
	token, err := jws.Sign(payload, jws.WithKey(jwa.ES256(), priv, jws.WithProtectedHeaders(hdrs)))
	require.NoError(t, err)

	resolver := &mapResolver{keys: map[string]*jwks.SigningKey{"ec1": {KeyID: "ec1", Key: pub}}}
	v, err := New(resolver, WithIssuer(testIssuer), WithAudience(testAudience))
	require.NoError(t, err)

	got, err := v.ValidateToken(context.Background(), string(token))
	require.NoError(t, err)
	assert.Equal(t, testSubject, got.(*Claims).GetSubject())
}
