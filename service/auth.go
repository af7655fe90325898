package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/billetera/billetera-api/core"
	"github.com/billetera/billetera-api/internal/gotrue"
)

// Error codes produced while building sessions.
const (
	CodeEmailConfirmationRequired = "EMAIL_CONFIRMATION_REQUIRED"
	CodeSessionNotAvailable       = "AUTH_SESSION_NOT_AVAILABLE"
	CodeEmailAlreadyRegistered    = "EMAIL_ALREADY_REGISTERED"

	// providerEmailExists is the auth API code for a duplicate email.
	providerEmailExists = "email_exists"
)

// AuthClient is the part of the auth API the AuthService uses.
// *gotrue.Client implements it.
type AuthClient interface {
	HasServiceRole() bool
	SignUp(ctx context.Context, email, password string) (gotrue.Payload, error)
	SignIn(ctx context.Context, email, password string) (gotrue.Payload, error)
	Refresh(ctx context.Context, refreshToken string) (gotrue.Payload, error)
	SignOut(ctx context.Context, accessToken string) error
	Recover(ctx context.Context, email string) error
	AdminCreateUser(ctx context.Context, email, password string, emailConfirm bool) (gotrue.Payload, error)
}

// Credentials is the body of sign-up and sign-in requests.
type Credentials struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

// RefreshRequest is the body of a refresh request.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required,min=20"`
}

// SignOutRequest is the body of a sign-out request.
type SignOutRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required,min=20"`
}

// ResetPasswordRequest is the body of a password reset request.
type ResetPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// SessionUser identifies the owner of a session.
type SessionUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is the token pair handed to the client.
type Session struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresIn    int         `json:"expires_in"`
	TokenType    string      `json:"token_type"`
	User         SessionUser `json:"user"`
}

// Me describes the authenticated caller.
type Me struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	LastSignInAt *time.Time `json:"last_sign_in_at"`
}

// BuildSession normalizes an auth API response into a Session. Tokens are
// read from the top level or from a nested "session" object.
func BuildSession(payload gotrue.Payload) (*Session, error) {
	nested := payload.Object("session")
	pick := func(key string) any {
		if v, ok := payload[key]; ok && !isZero(v) {
			return v
		}
		return nested[key]
	}

	accessToken, _ := pick("access_token").(string)
	refreshToken, _ := pick("refresh_token").(string)
	tokenType, _ := pick("token_type").(string)
	expiresIn, _ := pick("expires_in").(float64)

	user := payload.Object("user")
	if len(user) == 0 {
		user = nested.Object("user")
	}
	userID, email := user.String("id"), user.String("email")

	if accessToken == "" || refreshToken == "" {
		if userID != "" && email != "" {
			return nil, core.NewError(http.StatusConflict, CodeEmailConfirmationRequired,
				"Account created, but the email address must be confirmed before signing in.",
				map[string]any(payload))
		}
		return nil, core.NewError(http.StatusBadRequest, CodeSessionNotAvailable,
			"Supabase did not return an active session.", map[string]any(payload))
	}

	if userID == "" || email == "" {
		return nil, core.ErrInvalidAuthUser.With(map[string]any(payload), nil)
	}

	if tokenType == "" {
		tokenType = "bearer"
	}

	return &Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(expiresIn),
		TokenType:    tokenType,
		User:         SessionUser{ID: userID, Email: email},
	}, nil
}

func isZero(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case float64:
		return t == 0
	}
	return false
}

// AuthService implements the account endpoints on top of the auth API.
type AuthService struct {
	client AuthClient
}

func NewAuthService(client AuthClient) *AuthService {
	return &AuthService{client: client}
}

// SignUp registers a user and returns a session. With a service role key the
// user is created pre-confirmed; otherwise a sign-up that yields no session
// falls back to signing in.
func (s *AuthService) SignUp(ctx context.Context, req Credentials) (*Session, error) {
	if s.client.HasServiceRole() {
		if _, err := s.client.AdminCreateUser(ctx, req.Email, req.Password, true); err != nil {
			var e *core.Error
			if errors.As(err, &e) && e.Code == providerEmailExists {
				return nil, core.NewError(http.StatusConflict, CodeEmailAlreadyRegistered,
					"This email is already registered. Sign in instead.", nil).With(e.Details, err)
			}
			return nil, err
		}
		return s.SignIn(ctx, req)
	}

	payload, err := s.client.SignUp(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	session, err := BuildSession(payload)
	if err != nil {
		var e *core.Error
		if errors.As(err, &e) && (e.Code == CodeSessionNotAvailable || e.Code == CodeEmailConfirmationRequired) {
			return s.SignIn(ctx, req)
		}
		return nil, err
	}
	return session, nil
}

func (s *AuthService) SignIn(ctx context.Context, req Credentials) (*Session, error) {
	payload, err := s.client.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	return BuildSession(payload)
}

func (s *AuthService) Refresh(ctx context.Context, req RefreshRequest) (*Session, error) {
	payload, err := s.client.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return nil, err
	}
	return BuildSession(payload)
}

// SignOut revokes the caller's session.
func (s *AuthService) SignOut(ctx context.Context, caller Caller) error {
	return s.client.SignOut(ctx, caller.AccessToken())
}

func (s *AuthService) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	return s.client.Recover(ctx, req.Email)
}

// Me describes identity without another provider round trip; the identity
// was confirmed with the provider when the request was authenticated.
func (s *AuthService) Me(identity *core.Identity) Me {
	return Me{
		ID:           identity.UserID(),
		Email:        identity.Email(),
		LastSignInAt: identity.LastSignInAt(),
	}
}
