package postgrest

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

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/billetera/billetera-api/core"
)

const (
	tracerName = "github.com/billetera/billetera-api/internal/postgrest"

	maxResponseBytes = 4 * 1024 * 1024

	// undefinedTable is the Postgres error code for a missing relation.
	undefinedTable = "42P01"
)

// Error codes produced by the client.
const (
	CodeRestError       = "SUPABASE_REST_ERROR"
	CodeInvalidResponse = "INVALID_SUPABASE_RESPONSE"
	CodeUnavailable     = "SUPABASE_UNAVAILABLE"
)

var (
	// ErrInvalidResponse is returned when a response body is not a JSON array
	// of rows.
	ErrInvalidResponse = core.NewError(http.StatusInternalServerError, CodeInvalidResponse,
		"Supabase rest returned invalid payload.", nil)

	// ErrUnavailable is returned when the data store cannot be reached.
	ErrUnavailable = core.NewError(http.StatusBadGateway, CodeUnavailable,
		"Supabase rest is unavailable.", nil)
)

// Client issues row-level-secured requests to <base>/rest/v1 on behalf of the
// caller. The caller's access token is forwarded, so the data store enforces
// ownership on its own.
type Client struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
}

// New creates a Client for the project at baseURL.
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
	return c, nil
}

// List returns the rows matched by q.
func List[T any](ctx context.Context, c *Client, accessToken string, q *Query) ([]T, error) {
	return send[T](ctx, c, "List", http.MethodGet, q, nil, accessToken)
}

// Insert creates row in table and returns the stored representation.
func Insert[T any](ctx context.Context, c *Client, accessToken, table string, row any) ([]T, error) {
	return send[T](ctx, c, "Insert", http.MethodPost, From(table), row, accessToken)
}

// Update patches the rows matched by q and returns them as stored.
// An empty result means nothing matched.
func Update[T any](ctx context.Context, c *Client, accessToken string, q *Query, patch any) ([]T, error) {
	return send[T](ctx, c, "Update", http.MethodPatch, q, patch, accessToken)
}

func send[T any](ctx context.Context, c *Client, op, method string, q *Query, body any, accessToken string) ([]T, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "postgrest."+op)
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("db.sql.table", q.Table()),
	)

	raw, err := c.roundTrip(ctx, method, q.String(), body, accessToken)
	if err != nil {
		e := core.AsError(err)
		span.SetAttributes(attribute.String("postgrest.error_code", e.Code))
		span.SetStatus(codes.Error, e.Message)
		return nil, err
	}

	var rows []T
	if err := json.Unmarshal(raw, &rows); err != nil {
		span.SetStatus(codes.Error, "undecodable rows")
		return nil, ErrInvalidResponse.With(nil, err)
	}
	span.SetAttributes(attribute.Int("postgrest.rows", len(rows)))
	return rows, nil
}

// roundTrip returns the raw JSON array from a successful response.
func (c *Client) roundTrip(ctx context.Context, method, path string, body any, accessToken string) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, core.ErrInternal.With(nil, fmt.Errorf("could not encode request body: %w", err))
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/rest/v1/"+path, reader)
	if err != nil {
		return nil, core.ErrInternal.With(nil, fmt.Errorf("could not build request: %w", err))
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")
	if method != http.MethodGet {
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, ErrUnavailable.With(nil, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, ErrUnavailable.With(nil, fmt.Errorf("could not read response: %w", err))
	}
	raw = bytes.TrimSpace(raw)

	var payload any = []any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			payload = []any{}
		}
	}

	if resp.StatusCode >= 400 {
		message := "Supabase rest request failed."
		if m, ok := payload.(map[string]any); ok {
			if s, ok := m["message"].(string); ok && s != "" {
				message = s
			}
		}
		return nil, core.NewError(resp.StatusCode, CodeRestError, message, payload)
	}

	if _, ok := payload.([]any); !ok {
		return nil, ErrInvalidResponse.With(payload, nil)
	}
	if len(raw) == 0 {
		return json.RawMessage("[]"), nil
	}
	return raw, nil
}

// IsMissingRelation reports whether err is a data-store error caused by table
// not existing yet: Postgres code 42P01, or a "relation" message naming it.
func IsMissingRelation(err error, table string) bool {
	var e *core.Error
	if !errors.As(err, &e) || e.Code != CodeRestError {
		return false
	}
	details, ok := e.Details.(map[string]any)
	if !ok {
		return false
	}
	code, _ := details["code"].(string)
	if strings.EqualFold(code, undefinedTable) {
		return true
	}
	message, _ := details["message"].(string)
	message = strings.ToLower(message)
	return strings.Contains(message, "relation") && strings.Contains(message, table)
}
