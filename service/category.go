package service

import (
	"context"
	"time"

	"github.com/jinzhu/copier"

	"github.com/billetera/billetera-api/core"
	"github.com/billetera/billetera-api/internal/postgrest"
)

// Category groups transactions. System defaults are seeded per user.
type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	Color     *string   `json:"color"`
	Icon      *string   `json:"icon"`
	IsSystem  bool      `json:"is_system"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CategoryCreate is the body of a create request.
type CategoryCreate struct {
	Name     string  `json:"name" binding:"required,min=1,max=80"`
	Kind     string  `json:"kind" binding:"required,oneof=income expense transfer credit_payment"`
	Color    *string `json:"color" binding:"omitempty,max=20"`
	Icon     *string `json:"icon" binding:"omitempty,max=50"`
	IsSystem bool    `json:"is_system"`
}

type categoryRow struct {
	UserID   string  `json:"user_id"`
	Name     string  `json:"name"`
	Kind     string  `json:"kind"`
	Color    *string `json:"color"`
	Icon     *string `json:"icon"`
	IsSystem bool    `json:"is_system"`
}

// CategoryService manages the caller's categories.
type CategoryService struct {
	r resource[Category]
}

func NewCategoryService(rest *postgrest.Client) *CategoryService {
	return &CategoryService{r: resource[Category]{
		rest:      rest,
		now:       time.Now,
		table:     "categories",
		columns:   []string{"id", "name", "kind", "color", "icon", "is_system", "created_at", "updated_at"},
		orderBy:   "name",
		ascending: true,
		code:      "CATEGORY",
		label:     "Category",
		plural:    "categories",
	}}
}

// List returns the caller's categories ordered by name.
func (s *CategoryService) List(ctx context.Context, caller Caller) ([]Category, error) {
	return s.r.list(ctx, caller)
}

func (s *CategoryService) Create(ctx context.Context, caller Caller, req CategoryCreate) (*Category, error) {
	var row categoryRow
	if err := copier.Copy(&row, &req); err != nil {
		return nil, core.ErrInternal.With(nil, err)
	}
	row.UserID = caller.UserID()
	return s.r.create(ctx, caller, row)
}

func (s *CategoryService) Delete(ctx context.Context, caller Caller, id string) error {
	return s.r.remove(ctx, caller, id)
}
