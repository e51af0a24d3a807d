package ledgerapi

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/spavnit/marketpay/internal/domain"
	"github.com/spavnit/marketpay/internal/service"
)

type LedgerServicer interface {
	Debit(ctx context.Context, args service.DebitArgs) (*domain.Balance, error)
	Refund(ctx context.Context, args service.DebitArgs) (*domain.Balance, error)
	Adjust(ctx context.Context, userID int64, signedAmount decimal.Decimal, description string) (*domain.Balance, error)
	GetBalance(ctx context.Context, userID int64) (*domain.Balance, error)
	GetAllBalances(ctx context.Context) ([]domain.Balance, error)
	GetTransactions(ctx context.Context, userID int64) ([]domain.Transaction, error)
	GetAllTransactions(ctx context.Context) ([]domain.Transaction, error)
}
