package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/billetera/billetera-api/core"
	"github.com/billetera/billetera-api/internal/postgrest"
)

// CodeMigrationsNotApplied is returned when a table has not been created yet.
const CodeMigrationsNotApplied = "MIGRATIONS_NOT_APPLIED"

// Caller is the authenticated user a request acts for. *core.Identity
// implements it.
type Caller interface {
	UserID() string
	AccessToken() string
}

// Success is the body of operations that return nothing else.
type Success struct {
	Success bool `json:"success"`
}

// resource performs owner-scoped operations on one soft-deletable table.
type resource[T any] struct {
	rest *postgrest.Client
	now  func() time.Time

	table     string
	columns   []string
	orderBy   string
	ascending bool

	code   string // CASH_WALLET
	label  string // Cash wallet
	plural string // cash wallets
}

// owned scopes q to the caller's live rows.
func (r *resource[T]) owned(caller Caller, q *postgrest.Query) *postgrest.Query {
	return q.Eq("user_id", caller.UserID()).IsNull("deleted_at")
}

func (r *resource[T]) list(ctx context.Context, caller Caller) ([]T, error) {
	q := r.owned(caller, postgrest.From(r.table).Select(r.columns...)).Order(r.orderBy, r.ascending)
	rows, err := postgrest.List[T](ctx, r.rest, caller.AccessToken(), q)
	if err != nil {
		return nil, r.mapErr(err)
	}
	if rows == nil {
		rows = []T{}
	}
	return rows, nil
}

func (r *resource[T]) create(ctx context.Context, caller Caller, row any) (*T, error) {
	rows, err := postgrest.Insert[T](ctx, r.rest, caller.AccessToken(), r.table, row)
	if err != nil {
		return nil, r.mapErr(err)
	}
	if len(rows) == 0 {
		return nil, core.NewError(http.StatusInternalServerError, r.code+"_CREATE_FAILED",
			r.label+" could not be created.", nil)
	}
	return &rows[0], nil
}

func (r *resource[T]) update(ctx context.Context, caller Caller, id string, patch any) (*T, error) {
	q := r.owned(caller, postgrest.From(r.table).Eq("id", id))
	rows, err := postgrest.Update[T](ctx, r.rest, caller.AccessToken(), q, patch)
	if err != nil {
		return nil, r.mapErr(err)
	}
	if len(rows) == 0 {
		return nil, r.notFound()
	}
	return &rows[0], nil
}

// remove soft-deletes the row by stamping deleted_at.
func (r *resource[T]) remove(ctx context.Context, caller Caller, id string) error {
	_, err := r.update(ctx, caller, id, map[string]any{"deleted_at": r.now().UTC()})
	return err
}

func (r *resource[T]) notFound() error {
	return core.NewError(http.StatusNotFound, r.code+"_NOT_FOUND", r.label+" not found.", nil)
}

func (r *resource[T]) noFields() error {
	return core.NewError(http.StatusBadRequest, "NO_"+r.code+"_FIELDS",
		fmt.Sprintf("At least one %s field must be provided.", strings.ToLower(r.label)), nil)
}

// mapErr turns a missing-table error into MIGRATIONS_NOT_APPLIED.
func (r *resource[T]) mapErr(err error) error {
	if postgrest.IsMissingRelation(err, r.table) {
		return core.NewError(http.StatusServiceUnavailable, CodeMigrationsNotApplied,
			fmt.Sprintf("Database migrations for %s are not applied yet.", r.plural), nil).With(nil, err)
	}
	return err
}

// patchFields renders an update request to the JSON object that is sent.
// Unset fields are dropped by their omitempty and omitzero tags; a Nullable
// set to null is kept as null.
func patchFields(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, core.ErrInternal.With(nil, err)
	}
	fields := map[string]any{}
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, core.ErrInternal.With(nil, err)
	}
	return fields, nil
}

func upper(s *string) *string {
	if s == nil {
		return nil
	}
	u := strings.ToUpper(*s)
	return &u
}

func currencyOrDefault(c string) string {
	if c == "" {
		return DefaultCurrency
	}
	return strings.ToUpper(c)
}

// DefaultCurrency is used when a create request names none.
const DefaultCurrency = "USD"
