package service

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billetera/billetera-api/core"
)

const txColumns = "select=id,kind,amount,currency,description,occurred_at,category_id,cash_wallet_id," +
	"bank_account_id,credit_card_id,target_cash_wallet_id,target_bank_account_id,created_at,updated_at"

const txRow = `{"id":"t1","kind":"expense","amount":9.99,"currency":"USD","description":null,` +
	`"occurred_at":"2025-03-01T09:30:00+00:00","category_id":"c1","cash_wallet_id":"w1",` +
	`"bank_account_id":null,"credit_card_id":null,"target_cash_wallet_id":null,"target_bank_account_id":null,` +
	`"created_at":"2025-03-01T09:30:00+00:00","updated_at":"2025-03-01T09:30:00+00:00"}`

func TestTransactionService_List(t *testing.T) {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 31, 23, 59, 59, 0, time.UTC)

	testCases := []struct {
		name   string
		filter TransactionFilter
		query  string
	}{
		{
			name:   "defaults",
			filter: TransactionFilter{},
			query:  "&user_id=eq.user-1&deleted_at=is.null&order=occurred_at.desc&limit=50&offset=0",
		},
		{
			name: "filters in a stable order",
			filter: TransactionFilter{
				Limit:        ptr(10),
				Offset:       ptr(20),
				Kind:         ptr("expense"),
				CashWalletID: ptr("w1"),
				CategoryID:   ptr("c1"),
				OccurredFrom: &from,
				OccurredTo:   &to,
			},
			query: "&user_id=eq.user-1&deleted_at=is.null&order=occurred_at.desc&limit=10&offset=20" +
				"&kind=eq.expense&category_id=eq.c1&cash_wallet_id=eq.w1" +
				"&occurred_at=gte.2025-01-01T00%3A00%3A00Z&occurred_at=lte.2025-01-31T23%3A59%3A59Z",
		},
		{
			name:   "limit is capped",
			filter: TransactionFilter{Limit: ptr(500), Offset: ptr(-3)},
			query:  "&user_id=eq.user-1&deleted_at=is.null&order=occurred_at.desc&limit=100&offset=0",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rest, client := newFakeREST(t, reply{http.StatusOK, "[" + txRow + "]"})

			txs, err := NewTransactionService(client).List(context.Background(), caller{}, tc.filter)
			require.NoError(t, err)
			require.Len(t, txs, 1)
			assert.Equal(t, 9.99, txs[0].Amount)
			assert.Nil(t, txs[0].Description)
			require.NotNil(t, txs[0].CashWalletID)
			assert.Equal(t, "w1", *txs[0].CashWalletID)

			assert.Equal(t, "/rest/v1/transactions?"+txColumns+tc.query, rest.only(t).uri)
		})
	}
}

func TestTransactionService_Create(t *testing.T) {
	t.Run("defaults occurred_at and currency", func(t *testing.T) {
		rest, client := newFakeREST(t, reply{http.StatusCreated, "[" + txRow + "]"})
		s := NewTransactionService(client)
		s.r.now = fixedClock

		_, err := s.Create(context.Background(), caller{}, TransactionCreate{
			Kind:         "expense",
			Amount:       9.99,
			CashWalletID: ptr("w1"),
		})
		require.NoError(t, err)

		assert.Equal(t, map[string]any{
			"user_id":        "user-1",
			"kind":           "expense",
			"amount":         9.99,
			"currency":       "USD",
			"occurred_at":    "2025-03-01T12:00:00Z",
			"cash_wallet_id": "w1",
		}, rest.only(t).body)
	})

	t.Run("keeps the given occurred_at", func(t *testing.T) {
		rest, client := newFakeREST(t, reply{http.StatusCreated, "[" + txRow + "]"})
		at := time.Date(2024, 12, 24, 18, 0, 0, 0, time.UTC)

		_, err := NewTransactionService(client).Create(context.Background(), caller{}, TransactionCreate{
			Kind:       "income",
			Amount:     100,
			Currency:   "ars",
			OccurredAt: &at,
		})
		require.NoError(t, err)

		body := rest.only(t).body
		assert.Equal(t, "2024-12-24T18:00:00Z", body["occurred_at"])
		assert.Equal(t, "ARS", body["currency"])
	})
}

func TestTransactionService_UpdateAndDelete(t *testing.T) {
	t.Run("update", func(t *testing.T) {
		rest, client := newFakeREST(t, reply{http.StatusOK, "[" + txRow + "]"})

		tx, err := NewTransactionService(client).Update(context.Background(), caller{}, "t1",
			TransactionUpdate{Amount: ptr(12.0), Description: Some("coffee")})
		require.NoError(t, err)
		assert.Equal(t, "t1", tx.ID)
		assert.Equal(t, map[string]any{"amount": 12.0, "description": "coffee"}, rest.only(t).body)
	})

	t.Run("null clears the category", func(t *testing.T) {
		rest, client := newFakeREST(t, reply{http.StatusOK, "[" + txRow + "]"})

		_, err := NewTransactionService(client).Update(context.Background(), caller{}, "t1",
			TransactionUpdate{CategoryID: Null[string]()})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"category_id": nil}, rest.only(t).body)
	})

	t.Run("update without fields", func(t *testing.T) {
		_, client := newFakeREST(t, reply{http.StatusOK, `[]`})

		_, err := NewTransactionService(client).Update(context.Background(), caller{}, "t1", TransactionUpdate{})
		assert.Equal(t, "NO_TRANSACTION_FIELDS", core.AsError(err).Code)
	})

	t.Run("delete of a missing row", func(t *testing.T) {
		_, client := newFakeREST(t, reply{http.StatusOK, `[]`})

		err := NewTransactionService(client).Delete(context.Background(), caller{}, "t9")
		e := core.AsError(err)
		assert.Equal(t, http.StatusNotFound, e.Status)
		assert.Equal(t, "TRANSACTION_NOT_FOUND", e.Code)
		assert.Equal(t, "Transaction not found.", e.Message)
	})

	t.Run("migrations not applied", func(t *testing.T) {
		_, client := newFakeREST(t, reply{http.StatusNotFound, fmt.Sprintf(missingRelation, "transactions")})

		_, err := NewTransactionService(client).List(context.Background(), caller{}, TransactionFilter{})
		assert.Equal(t, http.StatusServiceUnavailable, core.AsError(err).Status)
	})
}
