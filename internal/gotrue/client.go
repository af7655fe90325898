package gotrue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwk"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/billetera/billetera-api/core"
	"github.com/billetera/billetera-api/jwks"
)

const (
	tracerName = "github.com/billetera/billetera-api/internal/gotrue"

	// maxResponseBytes bounds every auth response body.
	maxResponseBytes = 1 * 1024 * 1024
)

// Error codes produced by the client.
const (
	CodeRequestFailed         = "SUPABASE_REQUEST_FAILED"
	CodeServiceRoleKeyMissing = "SERVICE_ROLE_KEY_MISSING"
)

// Payload is a decoded JSON object returned by the auth API.
type Payload map[string]any

// Client talks to the hosted auth API (GoTrue) under <base>/auth/v1.
type Client struct {
	baseURL        string
	anonKey        string
	serviceRoleKey string
	httpClient     *http.Client
	keys           *jwks.HTTPFetcher
}

// New creates a Client for the project at baseURL using the public anon key.
func New(baseURL, anonKey string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("base URL is required")
	}
	if anonKey == "" {
		return nil, errors.New("anon key is required")
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		anonKey:    anonKey,
		httpClient: &http.Client{Timeout: 20 * time.Second},
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	c.keys = &jwks.HTTPFetcher{
		URL:    c.baseURL + "/auth/v1/.well-known/jwks.json",
		Client: c.httpClient,
		Header: http.Header{"Apikey": {c.anonKey}},
	}
	return c, nil
}

// HasServiceRole reports whether admin operations are available.
func (c *Client) HasServiceRole() bool {
	return strings.TrimSpace(c.serviceRoleKey) != ""
}

// FetchKeySet downloads the project's signing keys. It implements jwks.Fetcher.
func (c *Client) FetchKeySet(ctx context.Context) (jwk.Set, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "gotrue.FetchKeySet")
	defer span.End()

	set, err := c.keys.FetchKeySet(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "key set fetch failed")
		return nil, err
	}
	return set, nil
}

// GetUser resolves the owner of accessToken ("who am I").
// It implements core.IdentityProvider.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*core.User, error) {
	payload, err := c.do(ctx, "GetUser", http.MethodGet, "/auth/v1/user", nil, c.userHeaders(accessToken))
	if err != nil {
		return nil, err
	}
	return ParseUser(payload)
}

// SignUp registers a user through the public sign-up endpoint.
func (c *Client) SignUp(ctx context.Context, email, password string) (Payload, error) {
	body := map[string]any{"email": email, "password": password}
	return c.do(ctx, "SignUp", http.MethodPost, "/auth/v1/signup", body, c.userHeaders(""))
}

// SignIn exchanges email and password for a session.
func (c *Client) SignIn(ctx context.Context, email, password string) (Payload, error) {
	body := map[string]any{"email": email, "password": password}
	return c.do(ctx, "SignIn", http.MethodPost, "/auth/v1/token?grant_type=password", body, c.userHeaders(""))
}

// Refresh exchanges a refresh token for a new session.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (Payload, error) {
	body := map[string]any{"refresh_token": refreshToken}
	return c.do(ctx, "Refresh", http.MethodPost, "/auth/v1/token?grant_type=refresh_token", body, c.userHeaders(""))
}

// SignOut revokes the session of accessToken.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	_, err := c.do(ctx, "SignOut", http.MethodPost, "/auth/v1/logout", map[string]any{}, c.userHeaders(accessToken))
	return err
}

// Recover sends a password reset email.
func (c *Client) Recover(ctx context.Context, email string) error {
	_, err := c.do(ctx, "Recover", http.MethodPost, "/auth/v1/recover", map[string]any{"email": email}, c.userHeaders(""))
	return err
}

// AdminCreateUser creates a user with the service role key.
func (c *Client) AdminCreateUser(ctx context.Context, email, password string, emailConfirm bool) (Payload, error) {
	headers, err := c.adminHeaders()
	if err != nil {
		return nil, err
	}
	body := map[string]any{"email": email, "password": password, "email_confirm": emailConfirm}
	return c.do(ctx, "AdminCreateUser", http.MethodPost, "/auth/v1/admin/users", body, headers)
}

func (c *Client) userHeaders(accessToken string) http.Header {
	h := http.Header{}
	h.Set("apikey", c.anonKey)
	h.Set("Content-Type", "application/json")
	if accessToken != "" {
		h.Set("Authorization", "Bearer "+accessToken)
	}
	return h
}

func (c *Client) adminHeaders() (http.Header, error) {
	if !c.HasServiceRole() {
		return nil, core.NewError(http.StatusInternalServerError, CodeServiceRoleKeyMissing,
			"SUPABASE_SERVICE_ROLE_KEY is required for admin auth operations", nil)
	}
	key := strings.TrimSpace(c.serviceRoleKey)
	h := http.Header{}
	h.Set("apikey", key)
	h.Set("Authorization", "Bearer "+key)
	h.Set("Content-Type", "application/json")
	return h, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body any, headers http.Header) (Payload, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "gotrue."+op)
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("gotrue.path", path),
	)

	payload, err := c.roundTrip(ctx, method, path, body, headers)
	if err != nil {
		e := core.AsError(err)
		span.SetAttributes(attribute.String("gotrue.error_code", e.Code))
		span.SetStatus(codes.Error, e.Message)
		return nil, err
	}
	return payload, nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body any, headers http.Header) (Payload, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, core.ErrInternal.With(nil, fmt.Errorf("could not encode request body: %w", err))
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, core.ErrInternal.With(nil, fmt.Errorf("could not build request: %w", err))
	}
	req.Header = headers

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, core.ErrProviderUnavailable.With(nil, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, core.ErrProviderUnavailable.With(nil, fmt.Errorf("could not read response: %w", err))
	}

	payload := Payload{}
	var decodeErr error
	if len(bytes.TrimSpace(raw)) > 0 {
		if decodeErr = json.Unmarshal(raw, &payload); decodeErr != nil {
			// Error pages from proxies are kept verbatim in the details.
			payload = Payload{"body": string(raw)}
		}
	}

	switch {
	case resp.StatusCode >= 500:
		return nil, core.ErrProviderUnavailable.With(
			map[string]any{"status": resp.StatusCode, "response": payload},
			fmt.Errorf("auth API returned status %d", resp.StatusCode),
		)
	case resp.StatusCode >= 400:
		return nil, unwrapError(resp.StatusCode, payload)
	case decodeErr != nil:
		return nil, core.ErrProviderUnavailable.With(nil, fmt.Errorf("could not decode response: %w", decodeErr))
	}

	return payload, nil
}

// unwrapError converts a 4xx auth API response into a *core.Error that keeps
// the provider's status and code.
func unwrapError(status int, payload Payload) *core.Error {
	message := firstString(payload, "msg", "error_description", "message")
	if message == "" {
		message = "Supabase request failed"
	}
	code := firstString(payload, "error_code", "code", "error")
	if code == "" {
		code = CodeRequestFailed
	}
	return core.NewError(status, code, message, map[string]any(payload))
}

func firstString(p Payload, keys ...string) string {
	for _, k := range keys {
		switch v := p[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return fmt.Sprintf("%g", v)
		}
	}
	return ""
}
