package ledgerapi

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/spavnit/marketpay/internal/domain"
)

type BalanceResponse struct {
	UserID    int64           `json:"userId"`
	Email     string          `json:"email"`
	Amount    decimal.Decimal `json:"amount"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func newBalanceResponse(b *domain.Balance) BalanceResponse {
	return BalanceResponse{
		UserID:    b.UserID,
		Email:     b.Email,
		Amount:    b.Amount,
		UpdatedAt: b.UpdatedAt,
	}
}

func newBalanceListResponse(balances []domain.Balance) []BalanceResponse {
	resp := make([]BalanceResponse, 0, len(balances))
	for i := range balances {
		resp = append(resp, newBalanceResponse(&balances[i]))
	}
	return resp
}

type TransactionResponse struct {
	ID            int64                  `json:"id"`
	UserID        int64                  `json:"userId"`
	Email         string                 `json:"email"`
	Type          domain.TransactionType `json:"type"`
	Amount        decimal.Decimal        `json:"amount"`
	SignedAmount  decimal.Decimal        `json:"signedAmount"`
	BalanceBefore decimal.Decimal        `json:"balanceBefore"`
	BalanceAfter  decimal.Decimal        `json:"balanceAfter"`
	OrderID       *int64                 `json:"orderId,omitempty"`
	Description   string                 `json:"description,omitempty"`
	CreatedAt     time.Time              `json:"createdAt"`
}

func newTransactionResponse(t *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:            t.ID,
		UserID:        t.UserID,
		Email:         t.Email,
		Type:          t.Type,
		Amount:        t.Amount,
		SignedAmount:  t.SignedAmount(),
		BalanceBefore: t.BalanceBefore,
		BalanceAfter:  t.BalanceAfter,
		OrderID:       t.OrderID,
		Description:   t.Description,
		CreatedAt:     t.CreatedAt,
	}
}

func newTransactionListResponse(transactions []domain.Transaction) []TransactionResponse {
	resp := make([]TransactionResponse, 0, len(transactions))
	for i := range transactions {
		resp = append(resp, newTransactionResponse(&transactions[i]))
	}
	return resp
}
