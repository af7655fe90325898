package service

import (
	"context"
	"time"

	"github.com/billetera/billetera-api/internal/postgrest"
)

// Transaction page bounds.
const (
	DefaultTransactionLimit = 50
	MaxTransactionLimit     = 100
)

// Transaction is a stored money movement.
type Transaction struct {
	ID                  string    `json:"id"`
	Kind                string    `json:"kind"`
	Amount              float64   `json:"amount"`
	Currency            string    `json:"currency"`
	Description         *string   `json:"description"`
	OccurredAt          time.Time `json:"occurred_at"`
	CategoryID          *string   `json:"category_id"`
	CashWalletID        *string   `json:"cash_wallet_id"`
	BankAccountID       *string   `json:"bank_account_id"`
	CreditCardID        *string   `json:"credit_card_id"`
	TargetCashWalletID  *string   `json:"target_cash_wallet_id"`
	TargetBankAccountID *string   `json:"target_bank_account_id"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// TransactionCreate is the body of a create request. Unset optional fields
// are not sent.
type TransactionCreate struct {
	Kind                string     `json:"kind" binding:"required,oneof=income expense transfer credit_charge credit_payment"`
	Amount              float64    `json:"amount" binding:"required,gt=0"`
	Currency            string     `json:"currency,omitempty" binding:"omitempty,currency"`
	Description         *string    `json:"description,omitempty" binding:"omitempty,max=255"`
	OccurredAt          *time.Time `json:"occurred_at,omitempty"`
	CategoryID          *string    `json:"category_id,omitempty"`
	CashWalletID        *string    `json:"cash_wallet_id,omitempty"`
	BankAccountID       *string    `json:"bank_account_id,omitempty"`
	CreditCardID        *string    `json:"credit_card_id,omitempty"`
	TargetCashWalletID  *string    `json:"target_cash_wallet_id,omitempty"`
	TargetBankAccountID *string    `json:"target_bank_account_id,omitempty"`
}

// TransactionUpdate is the body of a patch request. Nil or absent fields are
// unchanged; description and category_id may be cleared with null.
type TransactionUpdate struct {
	Kind        *string          `json:"kind,omitempty" binding:"omitempty,oneof=income expense transfer credit_charge credit_payment"`
	Amount      *float64         `json:"amount,omitempty" binding:"omitempty,gt=0"`
	Currency    *string          `json:"currency,omitempty" binding:"omitempty,currency"`
	Description Nullable[string] `json:"description,omitzero" binding:"omitempty,max=255"`
	OccurredAt  *time.Time       `json:"occurred_at,omitempty"`
	CategoryID  Nullable[string] `json:"category_id,omitzero"`
}

// TransactionFilter narrows a list request. It binds from the query string.
type TransactionFilter struct {
	Limit         *int       `form:"limit" binding:"omitempty,min=1,max=100"`
	Offset        *int       `form:"offset" binding:"omitempty,min=0"`
	Kind          *string    `form:"kind" binding:"omitempty,oneof=income expense transfer credit_charge credit_payment"`
	CategoryID    *string    `form:"category_id"`
	CashWalletID  *string    `form:"cash_wallet_id"`
	BankAccountID *string    `form:"bank_account_id"`
	CreditCardID  *string    `form:"credit_card_id"`
	OccurredFrom  *time.Time `form:"occurred_from"`
	OccurredTo    *time.Time `form:"occurred_to"`
}

func (f TransactionFilter) limit() int {
	if f.Limit == nil {
		return DefaultTransactionLimit
	}
	return min(max(*f.Limit, 1), MaxTransactionLimit)
}

func (f TransactionFilter) offset() int {
	if f.Offset == nil {
		return 0
	}
	return max(*f.Offset, 0)
}

type transactionRow struct {
	TransactionCreate
	UserID     string    `json:"user_id"`
	Currency   string    `json:"currency"`
	OccurredAt time.Time `json:"occurred_at"`
}

// TransactionService manages the caller's transactions.
type TransactionService struct {
	r resource[Transaction]
}

func NewTransactionService(rest *postgrest.Client) *TransactionService {
	return &TransactionService{r: resource[Transaction]{
		rest: rest,
		now:  time.Now,
		table: "transactions",
		columns: []string{
			"id", "kind", "amount", "currency", "description", "occurred_at", "category_id",
			"cash_wallet_id", "bank_account_id", "credit_card_id", "target_cash_wallet_id",
			"target_bank_account_id", "created_at", "updated_at",
		},
		orderBy: "occurred_at",
		code:    "TRANSACTION",
		label:   "Transaction",
		plural:  "transactions",
	}}
}

// List returns one page of the caller's transactions, most recent first.
func (s *TransactionService) List(ctx context.Context, caller Caller, f TransactionFilter) ([]Transaction, error) {
	q := s.r.owned(caller, postgrest.From(s.r.table).Select(s.r.columns...)).
		Order(s.r.orderBy, false).
		Limit(f.limit()).
		Offset(f.offset())

	eq := func(column string, v *string) {
		if v != nil {
			q.Eq(column, *v)
		}
	}
	eq("kind", f.Kind)
	eq("category_id", f.CategoryID)
	eq("cash_wallet_id", f.CashWalletID)
	eq("bank_account_id", f.BankAccountID)
	eq("credit_card_id", f.CreditCardID)
	if f.OccurredFrom != nil {
		q.Gte("occurred_at", f.OccurredFrom.Format(time.RFC3339Nano))
	}
	if f.OccurredTo != nil {
		q.Lte("occurred_at", f.OccurredTo.Format(time.RFC3339Nano))
	}

	rows, err := postgrest.List[Transaction](ctx, s.r.rest, caller.AccessToken(), q)
	if err != nil {
		return nil, s.r.mapErr(err)
	}
	if rows == nil {
		rows = []Transaction{}
	}
	return rows, nil
}

// Create stores a transaction. A missing occurred_at means now.
func (s *TransactionService) Create(ctx context.Context, caller Caller, req TransactionCreate) (*Transaction, error) {
	row := transactionRow{
		TransactionCreate: req,
		UserID:            caller.UserID(),
		Currency:          currencyOrDefault(req.Currency),
		OccurredAt:        s.r.now().UTC(),
	}
	if req.OccurredAt != nil {
		row.OccurredAt = *req.OccurredAt
	}
	return s.r.create(ctx, caller, row)
}

func (s *TransactionService) Update(ctx context.Context, caller Caller, id string, req TransactionUpdate) (*Transaction, error) {
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

func (s *TransactionService) Delete(ctx context.Context, caller Caller, id string) error {
	return s.r.remove(ctx, caller, id)
}
