package validator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jws"

	"github.com/billetera/billetera-api/core"
	"github.com/billetera/billetera-api/jwks"
)

// Signature algorithms accepted in the token header. Symmetric algorithms
// and "none" are never accepted because keys come from a public key set.
const (
	EdDSA = SignatureAlgorithm("EdDSA")
	RS256 = SignatureAlgorithm("RS256") // RSASSA-PKCS-v1.5 using SHA-256
	RS384 = SignatureAlgorithm("RS384") // RSASSA-PKCS-v1.5 using SHA-384
	RS512 = SignatureAlgorithm("RS512") // RSASSA-PKCS-v1.5 using SHA-512
	ES256 = SignatureAlgorithm("ES256") // ECDSA using P-256 and SHA-256
	ES384 = SignatureAlgorithm("ES384") // ECDSA using P-384 and SHA-384
	ES512 = SignatureAlgorithm("ES512") // ECDSA using P-521 and SHA-512
	PS256 = SignatureAlgorithm("PS256") // RSASSA-PSS using SHA256 and MGF1-SHA256
	PS384 = SignatureAlgorithm("PS384") // RSASSA-PSS using SHA384 and MGF1-SHA384
	PS512 = SignatureAlgorithm("PS512") // RSASSA-PSS using SHA512 and MGF1-SHA512
)

// SignatureAlgorithm is a signature algorithm.
type SignatureAlgorithm string

var allowedSigningAlgorithms = map[SignatureAlgorithm]bool{
	EdDSA: true,
	RS256: true,
	RS384: true,
	RS512: true,
	ES256: true,
	ES384: true,
	ES512: true,
	PS256: true,
	PS384: true,
	PS512: true,
}

// KeyResolver finds the public key for a kid. *jwks.Cache implements it.
type KeyResolver interface {
	GetKey(ctx context.Context, kid string) (*jwks.SigningKey, error)
}

// Validator verifies bearer tokens issued by the identity provider.
type Validator struct {
	keys             KeyResolver   // Required.
	issuer           string        // Required.
	audience         string        // Optional.
	allowedClockSkew time.Duration // Optional.
	now              func() time.Time
}

// New sets up a new Validator resolving keys through keys.
//
// WithIssuer or WithBaseURL must be given. When both are, WithIssuer wins
// regardless of order.
//
// Example:
//
//	v, err := validator.New(cache,
//	    validator.WithBaseURL("https://abc.supabase.co"),
//	    validator.WithAudience("authenticated"),
//	)
func New(keys KeyResolver, opts ...Option) (*Validator, error) {
	if keys == nil {
		return nil, errors.New("key resolver is required but was nil")
	}

	v := &Validator{
		keys: keys,
		now:  time.Now,
	}

	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if v.issuer == "" {
		return nil, errors.New("issuer is required (use WithIssuer or WithBaseURL)")
	}

	return v, nil
}

// Issuer returns the issuer tokens must carry.
func (v *Validator) Issuer() string {
	return v.issuer
}

// ValidateToken verifies tokenString and returns its *Claims.
//
// Checks run in a fixed order and stop at the first failure:
// structure, header, key lookup, signature, exp, nbf, iss, aud.
// Every failure is a *core.Error.
func (v *Validator) ValidateToken(ctx context.Context, tokenString string) (any, error) {
	if err := validateTokenFormat(tokenString); err != nil {
		return nil, core.ErrInvalidToken.With(nil, err)
	}

	msg, err := jws.Parse([]byte(tokenString))
	if err != nil {
		return nil, core.ErrInvalidToken.With(nil, fmt.Errorf("could not parse the token: %w", err))
	}

	sigs := msg.Signatures()
	if len(sigs) != 1 {
		return nil, core.ErrInvalidToken.With(nil, fmt.Errorf("expected one signature, got %d", len(sigs)))
	}
	if !isJSONObject(msg.Payload()) {
		return nil, core.ErrInvalidToken.With(nil, errors.New("payload is not a JSON object"))
	}

	// Header values are untrusted and only select the key and algorithm.
	headers := sigs[0].ProtectedHeaders()
	kid, _ := headers.KeyID()
	alg, hasAlg := headers.Algorithm()
	if kid == "" || !hasAlg || alg.String() == "" {
		return nil, core.ErrInvalidTokenHeader.With(nil, errors.New("token header must carry kid and alg"))
	}
	if !allowedSigningAlgorithms[SignatureAlgorithm(alg.String())] {
		return nil, core.ErrInvalidTokenHeader.With(nil, fmt.Errorf("unsupported signing algorithm %q", alg.String()))
	}

	key, err := v.keys.GetKey(ctx, kid)
	if err != nil {
		if errors.Is(err, jwks.ErrKeyNotFound) {
			return nil, core.ErrUnknownKeyID.With(map[string]any{"kid": kid}, err)
		}
		return nil, core.ErrProviderUnavailable.With(nil, err)
	}

	payload, err := verifySignature([]byte(tokenString), alg, key)
	if err != nil {
		return nil, core.ErrInvalidSignature.With(nil, err)
	}

	claims, err := decodeClaims(payload)
	if err != nil {
		return nil, core.ErrInvalidToken.With(nil, err)
	}

	if err := v.validateClaims(claims); err != nil {
		return nil, err
	}

	return claims, nil
}

func verifySignature(token []byte, alg jwa.SignatureAlgorithm, key *jwks.SigningKey) ([]byte, error) {
	if key.Algorithm != "" && key.Algorithm != alg.String() {
		return nil, fmt.Errorf("key %q is for %s, token specified %s", key.KeyID, key.Algorithm, alg.String())
	}
	return jws.Verify(token, jws.WithKey(alg, key.Key))
}

func (v *Validator) validateClaims(claims *Claims) error {
	now := v.now()

	if claims.ExpiresAt == nil || !claims.ExpiresAt.After(now.Add(-v.allowedClockSkew)) {
		return core.ErrTokenExpired
	}

	if claims.NotBefore != nil && claims.NotBefore.After(now.Add(v.allowedClockSkew)) {
		return core.ErrTokenNotYetValid
	}

	if claims.Issuer != v.issuer {
		return core.ErrInvalidIssuer
	}

	if v.audience != "" && !slices.Contains(claims.Audience, v.audience) {
		return core.ErrInvalidAudience
	}

	return nil
}

// IssuerFromBaseURL derives the provider's issuer from the project base URL.
func IssuerFromBaseURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + "/auth/v1"
}

func isJSONObject(b []byte) bool {
	var obj map[string]json.RawMessage
	return json.Unmarshal(b, &obj) == nil && obj != nil
}
