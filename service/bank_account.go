package service

import (
	"context"
	"time"

	"github.com/jinzhu/copier"

	"github.com/billetera/billetera-api/core"
	"github.com/billetera/billetera-api/internal/postgrest"
)

// BankAccount is a stored bank account.
type BankAccount struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	BankName  *string   `json:"bank_name"`
	Balance   float64   `json:"balance"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BankAccountCreate is the body of a create request.
type BankAccountCreate struct {
	Name     string  `json:"name" binding:"required,min=1,max=80"`
	BankName *string `json:"bank_name" binding:"omitempty,max=120"`
	Balance  float64 `json:"balance" binding:"gte=0"`
	Currency string  `json:"currency" binding:"omitempty,currency"`
}

// BankAccountUpdate is the body of a patch request. Nil fields are unchanged;
// bank_name may be cleared with null.
type BankAccountUpdate struct {
	Name     *string          `json:"name,omitempty" binding:"omitempty,min=1,max=80"`
	BankName Nullable[string] `json:"bank_name,omitzero" binding:"omitempty,max=120"`
	Balance  *float64         `json:"balance,omitempty" binding:"omitempty,gte=0"`
	Currency *string          `json:"currency,omitempty" binding:"omitempty,currency"`
}

type bankAccountRow struct {
	UserID   string  `json:"user_id"`
	Name     string  `json:"name"`
	BankName *string `json:"bank_name"`
	Balance  float64 `json:"balance"`
	Currency string  `json:"currency"`
}

// BankAccountService manages the caller's bank accounts.
type BankAccountService struct {
	r resource[BankAccount]
}

func NewBankAccountService(rest *postgrest.Client) *BankAccountService {
	return &BankAccountService{r: resource[BankAccount]{
		rest:    rest,
		now:     time.Now,
		table:   "bank_accounts",
		columns: []string{"id", "name", "bank_name", "balance", "currency", "created_at", "updated_at"},
		orderBy: "created_at",
		code:    "BANK_ACCOUNT",
		label:   "Bank account",
		plural:  "bank accounts",
	}}
}

func (s *BankAccountService) List(ctx context.Context, caller Caller) ([]BankAccount, error) {
	return s.r.list(ctx, caller)
}

func (s *BankAccountService) Create(ctx context.Context, caller Caller, req BankAccountCreate) (*BankAccount, error) {
	var row bankAccountRow
	if err := copier.Copy(&row, &req); err != nil {
		return nil, core.ErrInternal.With(nil, err)
	}
	row.UserID = caller.UserID()
	row.Currency = currencyOrDefault(req.Currency)
	return s.r.create(ctx, caller, row)
}

func (s *BankAccountService) Update(ctx context.Context, caller Caller, id string, req BankAccountUpdate) (*BankAccount, error) {
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

func (s *BankAccountService) Delete(ctx context.Context, caller Caller, id string) error {
	return s.r.remove(ctx, caller, id)
}
