package repoargs

import (
	"github.com/shopspring/decimal"

	"github.com/spavnit/marketpay/internal/domain"
)

// TransactionCreate аргументы вставки записи журнала. Amount всегда модуль,
// знак операции уже учтен в BalanceBefore/BalanceAfter.
type TransactionCreate struct {
	UserID        int64
	Email         string
	Type          domain.TransactionType
	Amount        decimal.Decimal
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
	OrderID       *int64
	Description   string
}
