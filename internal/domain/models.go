package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Balance материализованный текущий баланс пользователя. Одна строка на пользователя,
// мутируется исключительно леджер-сервисом.
type Balance struct {
	UserID    int64
	CreatedAt time.Time
	UpdatedAt time.Time
	Email     string
	Amount    decimal.Decimal
}

// Transaction неизменяемая запись журнала операций по балансу. Создается только
// леджер-сервисом, никогда не обновляется и не удаляется.
type Transaction struct {
	ID            int64
	CreatedAt     time.Time
	UserID        int64
	Email         string
	Type          TransactionType
	Amount        decimal.Decimal
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
	OrderID       *int64
	Description   string
}

// SignedAmount возвращает знаковый эффект транзакции. Amount хранится как модуль,
// знак восстанавливается из разницы балансов.
func (t Transaction) SignedAmount() decimal.Decimal {
	return t.BalanceAfter.Sub(t.BalanceBefore)
}

// Order заказ. Items и TotalPrice фиксируются при создании из снимка корзины и больше
// не пересчитываются из каталога.
type Order struct {
	ID                 int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
	UserID             int64
	Email              string
	Status             OrderStatusType
	TotalPrice         decimal.Decimal
	Items              []OrderItem
	PaidAt             *time.Time
	CancelledAt        *time.Time
	CancellationReason string
	CancelledBy        string
}

// OrderItem позиция заказа с зафиксированной на момент создания ценой.
// DownloadLink заполняется только после оплаты.
type OrderItem struct {
	ID           int64
	OrderID      int64
	ProductID    int64
	ProductName  string
	ProductPrice decimal.Decimal
	Category     string
	Quantity     int32
	DownloadLink *string
	AddedAt      time.Time
}
