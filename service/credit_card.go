package service

import (
	"context"
	"time"

	"github.com/jinzhu/copier"

	"github.com/billetera/billetera-api/core"
	"github.com/billetera/billetera-api/internal/postgrest"
)

// DefaultCardTier is the tier of a card created without one.
const DefaultCardTier = "classic"

// CreditCard is a stored credit card.
type CreditCard struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Issuer       *string   `json:"issuer"`
	Tier         string    `json:"tier"`
	CreditLimit  float64   `json:"credit_limit"`
	CurrentDebt  float64   `json:"current_debt"`
	StatementDay *int      `json:"statement_day"`
	DueDay       *int      `json:"due_day"`
	Currency     string    `json:"currency"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreditCardCreate is the body of a create request.
type CreditCardCreate struct {
	Name         string  `json:"name" binding:"required,min=1,max=80"`
	Issuer       *string `json:"issuer" binding:"omitempty,max=120"`
	Tier         string  `json:"tier" binding:"omitempty,max=15"`
	CreditLimit  float64 `json:"credit_limit" binding:"gte=0"`
	CurrentDebt  float64 `json:"current_debt" binding:"gte=0"`
	StatementDay *int    `json:"statement_day" binding:"omitempty,min=1,max=31"`
	DueDay       *int    `json:"due_day" binding:"omitempty,min=1,max=31"`
	Currency     string  `json:"currency" binding:"omitempty,currency"`
}

// CreditCardUpdate is the body of a patch request. Nil fields are unchanged;
// issuer may be cleared with null.
type CreditCardUpdate struct {
	Name         *string          `json:"name,omitempty" binding:"omitempty,min=1,max=80"`
	Issuer       Nullable[string] `json:"issuer,omitzero" binding:"omitempty,max=120"`
	Tier         *string          `json:"tier,omitempty" binding:"omitempty,max=15"`
	CreditLimit  *float64         `json:"credit_limit,omitempty" binding:"omitempty,gte=0"`
	CurrentDebt  *float64         `json:"current_debt,omitempty" binding:"omitempty,gte=0"`
	StatementDay *int             `json:"statement_day,omitempty" binding:"omitempty,min=1,max=31"`
	DueDay       *int             `json:"due_day,omitempty" binding:"omitempty,min=1,max=31"`
	Currency     *string          `json:"currency,omitempty" binding:"omitempty,currency"`
}

type creditCardRow struct {
	UserID       string  `json:"user_id"`
	Name         string  `json:"name"`
	Issuer       *string `json:"issuer"`
	Tier         string  `json:"tier"`
	CreditLimit  float64 `json:"credit_limit"`
	CurrentDebt  float64 `json:"current_debt"`
	StatementDay *int    `json:"statement_day"`
	DueDay       *int    `json:"due_day"`
	Currency     string  `json:"currency"`
}

// CreditCardService manages the caller's credit cards.
type CreditCardService struct {
	r resource[CreditCard]
}

func NewCreditCardService(rest *postgrest.Client) *CreditCardService {
	return &CreditCardService{r: resource[CreditCard]{
		rest: rest,
		now:  time.Now,
		table: "credit_cards",
		columns: []string{
			"id", "name", "issuer", "tier", "credit_limit", "current_debt",
			"statement_day", "due_day", "currency", "created_at", "updated_at",
		},
		orderBy: "created_at",
		code:    "CREDIT_CARD",
		label:   "Credit card",
		plural:  "credit cards",
	}}
}

func (s *CreditCardService) List(ctx context.Context, caller Caller) ([]CreditCard, error) {
	return s.r.list(ctx, caller)
}

func (s *CreditCardService) Create(ctx context.Context, caller Caller, req CreditCardCreate) (*CreditCard, error) {
	var row creditCardRow
	if err := copier.Copy(&row, &req); err != nil {
		return nil, core.ErrInternal.With(nil, err)
	}
	row.UserID = caller.UserID()
	row.Currency = currencyOrDefault(req.Currency)
	if row.Tier == "" {
		row.Tier = DefaultCardTier
	}
	return s.r.create(ctx, caller, row)
}

func (s *CreditCardService) Update(ctx context.Context, caller Caller, id string, req CreditCardUpdate) (*CreditCard, error) {
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

func (s *CreditCardService) Delete(ctx context.Context, caller Caller, id string) error {
	return s.r.remove(ctx, caller, id)
}
