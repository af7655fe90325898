package gotrue

import (
	"time"

	"github.com/billetera/billetera-api/core"
)

// ParseUser extracts the user from an auth API user object.
// A user without id or email is rejected with core.ErrInvalidAuthUser.
func ParseUser(payload Payload) (*core.User, error) {
	id, _ := payload["id"].(string)
	email, _ := payload["email"].(string)
	if id == "" || email == "" {
		return nil, core.ErrInvalidAuthUser
	}

	user := &core.User{ID: id, Email: email}
	if raw, ok := payload["last_sign_in_at"].(string); ok && raw != "" {
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			user.LastSignInAt = &t
		}
	}
	return user, nil
}

// Object returns the nested JSON object under key, or nil.
func (p Payload) Object(key string) Payload {
	switch v := p[key].(type) {
	case map[string]any:
		return Payload(v)
	case Payload:
		return v
	}
	return nil
}

// String returns the string under key, or "".
func (p Payload) String(key string) string {
	s, _ := p[key].(string)
	return s
}
