// Package events содержит контракты фактов шины событий и kafka-обвязку
// для их публикации и потребления.
package events

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Топики шины. Внутри топика порядок гарантируется по ключу сообщения,
// между топиками - нет.
const (
	TopicOrderCreated   = "order-created"
	TopicOrderPaid      = "order-paid"
	TopicOrderCancelled = "order-cancelled"
	TopicUserCreated    = "user-created"
	TopicBalanceCreated = "balance-created"
	TopicPaymentEvents  = "payment-events"
)

// NewEventID генерирует идентификатор факта. Доставка at-least-once: потребители
// используют eventId для отсечения дублей.
func NewEventID() string {
	return uuid.NewString()
}

// Envelope общая часть любого факта. Каждый payload встраивает её.
type Envelope struct {
	EventID string `json:"eventId"`
}

type OrderCreatedEvent struct {
	Envelope
	OrderID    int64           `json:"orderId"`
	UserID     int64           `json:"userId"`
	Email      string          `json:"email"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	ItemCount  int             `json:"itemCount"`
}

type ProductLink struct {
	ProductName  string  `json:"productName"`
	DownloadLink *string `json:"downloadLink"`
}

type OrderPaidEvent struct {
	Envelope
	OrderID      int64           `json:"orderId"`
	UserID       int64           `json:"userId"`
	Email        string          `json:"email"`
	TotalPrice   decimal.Decimal `json:"totalPrice"`
	ProductLinks []ProductLink   `json:"productLinks"`
}

type OrderCancelledEvent struct {
	Envelope
	OrderID            int64            `json:"orderId"`
	UserID             int64            `json:"userId"`
	Email              string           `json:"email"`
	CancellationReason string           `json:"cancellationReason"`
	CancelledBy        string           `json:"cancelledBy"`
	Refunded           bool             `json:"refunded"`
	RefundedAmount     *decimal.Decimal `json:"refundedAmount,omitempty"`
}

// UserCreatedEvent факт регистрации пользователя в auth-сервисе. Потребляется
// леджером для идемпотентного создания стартового баланса.
type UserCreatedEvent struct {
	Envelope
	UserID int64  `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// BalanceCreatedEvent факт создания баланса; потребляется внешним профильным сервисом.
type BalanceCreatedEvent struct {
	Envelope
	UserID int64           `json:"userId"`
	Email  string          `json:"email"`
	Amount decimal.Decimal `json:"amount"`
}

// PaymentEvent факт результата списания, публикуется леджером после успешного debit.
type PaymentEvent struct {
	Envelope
	OrderID *int64          `json:"orderId"`
	UserID  int64           `json:"userId"`
	Email   string          `json:"email"`
	Amount  decimal.Decimal `json:"amount"`
	Status  string          `json:"status"`
	Message string          `json:"message"`
}
