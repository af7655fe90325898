package service

import (
	"context"
	"time"

	"github.com/jinzhu/copier"

	"github.com/billetera/billetera-api/core"
	"github.com/billetera/billetera-api/internal/postgrest"
)

// CashWallet is a stored cash wallet.
type CashWallet struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Balance   float64   `json:"balance"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CashWalletCreate is the body of a create request.
type CashWalletCreate struct {
	Name     string  `json:"name" binding:"required,min=1,max=80"`
	Balance  float64 `json:"balance" binding:"gte=0"`
	Currency string  `json:"currency" binding:"omitempty,currency"`
}

// CashWalletUpdate is the body of a patch request. Nil fields are unchanged.
type CashWalletUpdate struct {
	Name     *string  `json:"name,omitempty" binding:"omitempty,min=1,max=80"`
	Balance  *float64 `json:"balance,omitempty" binding:"omitempty,gte=0"`
	Currency *string  `json:"currency,omitempty" binding:"omitempty,currency"`
}

type cashWalletRow struct {
	UserID   string  `json:"user_id"`
	Name     string  `json:"name"`
	Balance  float64 `json:"balance"`
	Currency string  `json:"currency"`
}

// CashWalletService manages the caller's cash wallets.
type CashWalletService struct {
	r resource[CashWallet]
}

// NewCashWalletService returns a CashWalletService backed by rest.
func NewCashWalletService(rest *postgrest.Client) *CashWalletService {
	return &CashWalletService{r: resource[CashWallet]{
		rest:    rest,
		now:     time.Now,
		table:   "cash_wallets",
		columns: []string{"id", "name", "balance", "currency", "created_at", "updated_at"},
		orderBy: "created_at",
		code:    "CASH_WALLET",
		label:   "Cash wallet",
		plural:  "cash wallets",
	}}
}

// List returns the caller's wallets, newest first.
func (s *CashWalletService) List(ctx context.Context, caller Caller) ([]CashWallet, error) {
	return s.r.list(ctx, caller)
}

// Create stores a new wallet owned by the caller.
func (s *CashWalletService) Create(ctx context.Context, caller Caller, req CashWalletCreate) (*CashWallet, error) {
	var row cashWalletRow
	if err := copier.Copy(&row, &req); err != nil {
		return nil, core.ErrInternal.With(nil, err)
	}
	row.UserID = caller.UserID()
	row.Currency = currencyOrDefault(req.Currency)
	return s.r.create(ctx, caller, row)
}

// Update patches one of the caller's wallets.
func (s *CashWalletService) Update(ctx context.Context, caller Caller, id string, req CashWalletUpdate) (*CashWallet, error) {
	req.Currency = upper(req.Currency)
	patch, err := patchFields(req)
	if err != nil {
		return nil, err
	}
	if len(patch) == 0 {
		return nil, s.r.noFields()
	}
	return s.r.update(ctx, caller, id, patch)
}

// Delete soft-deletes one of the caller's wallets.
func (s *CashWalletService) Delete(ctx context.Context, caller Caller, id string) error {
	return s.r.remove(ctx, caller, id)
}
