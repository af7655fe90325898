package service

import (
	"context"
	"net/http"
	"time"

	"github.com/billetera/billetera-api/core"
	"github.com/billetera/billetera-api/internal/postgrest"
)

// Profile holds the caller's preferences. Its id is the user id.
type Profile struct {
	ID           string    `json:"id"`
	BaseCurrency string    `json:"base_currency"`
	AIEnabled    bool      `json:"ai_enabled"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ProfileUpdate is the body of a patch request. Nil fields are unchanged.
type ProfileUpdate struct {
	BaseCurrency *string `json:"base_currency,omitempty" binding:"omitempty,currency"`
	AIEnabled    *bool   `json:"ai_enabled,omitempty"`
}

// ErrProfileNotFound is returned when the caller has no live profile row.
var ErrProfileNotFound = core.NewError(http.StatusNotFound, "PROFILE_NOT_FOUND", "Profile not found.", nil)

// ProfileService reads and updates the caller's profile.
type ProfileService struct {
	r resource[Profile]
}

func NewProfileService(rest *postgrest.Client) *ProfileService {
	return &ProfileService{r: resource[Profile]{
		rest:    rest,
		now:     time.Now,
		table:   "profiles",
		columns: []string{"id", "base_currency", "ai_enabled", "created_at", "updated_at"},
		code:    "PROFILE",
		label:   "Profile",
		plural:  "profiles",
	}}
}

// Get returns the caller's profile.
func (s *ProfileService) Get(ctx context.Context, caller Caller) (*Profile, error) {
	q := postgrest.From(s.r.table).
		Select(s.r.columns...).
		Eq("id", caller.UserID()).
		IsNull("deleted_at")

	rows, err := postgrest.List[Profile](ctx, s.r.rest, caller.AccessToken(), q)
	if err != nil {
		return nil, s.r.mapErr(err)
	}
	if len(rows) == 0 {
		return nil, ErrProfileNotFound
	}
	return &rows[0], nil
}

// Update patches the caller's profile.
func (s *ProfileService) Update(ctx context.Context, caller Caller, req ProfileUpdate) (*Profile, error) {
	req.BaseCurrency = upper(req.BaseCurrency)
	patch, err := patchFields(req)
	if err != nil {
		return nil, err
	}
	if len(patch) == 0 {
		return nil, s.r.noFields()
	}

	q := postgrest.From(s.r.table).Eq("id", caller.UserID()).IsNull("deleted_at")
	rows, err := postgrest.Update[Profile](ctx, s.r.rest, caller.AccessToken(), q, patch)
	if err != nil {
		return nil, s.r.mapErr(err)
	}
	if len(rows) == 0 {
		return nil, ErrProfileNotFound
	}
	return &rows[0], nil
}
