package validator

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

// Claims are the verified claims of a provider access token.
// Supabase specific claims sit next to the registered ones.
type Claims struct {
	Issuer    string       `json:"iss,omitempty"`
	Subject   string       `json:"sub,omitempty"`
	Audience  Audience     `json:"aud,omitempty"`
	ExpiresAt *NumericDate `json:"exp,omitempty"`
	NotBefore *NumericDate `json:"nbf,omitempty"`
	IssuedAt  *NumericDate `json:"iat,omitempty"`
	ID        string       `json:"jti,omitempty"`

	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Role        string `json:"role,omitempty"`
	SessionID   string `json:"session_id,omitempty"`
	AAL         string `json:"aal,omitempty"`
	IsAnonymous bool   `json:"is_anonymous,omitempty"`

	// Raw holds every claim in the payload, including the ones above.
	Raw map[string]any `json:"-"`
}

// GetSubject returns the sub claim.
func (c *Claims) GetSubject() string {
	return c.Subject
}

func decodeClaims(payload []byte) (*Claims, error) {
	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("could not decode token claims: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&claims.Raw); err != nil {
		return nil, fmt.Errorf("could not decode token claims: %w", err)
	}

	return &claims, nil
}

// Audience is the aud claim. It decodes from either a single string or a list.
type Audience []string

// UnmarshalJSON implements json.Unmarshaler.
func (a *Audience) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*a = nil
		return nil
	}

	var single string
	if err := json.Unmarshal(b, &single); err == nil {
		*a = Audience{single}
		return nil
	}

	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		return errors.New("aud must be a string or a list of strings")
	}
	*a = list
	return nil
}

const maxNumericDate = 1 << 62

// NumericDate is a JWT NumericDate: seconds since the epoch, possibly fractional.
type NumericDate struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *NumericDate) UnmarshalJSON(b []byte) error {
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("numeric date must be a number: %w", err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return errors.New("numeric date out of range")
	}

	// Beyond ±2^62 seconds time.Unix overflows, so clamp instead.
	f = math.Max(-maxNumericDate, math.Min(f, maxNumericDate))

	sec, frac := math.Modf(f)
	d.Time = time.Unix(int64(sec), int64(frac*1e9)).UTC()
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d NumericDate) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Unix())
}
