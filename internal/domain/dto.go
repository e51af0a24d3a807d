package domain

type OrderStatusType string

const (
	OrderStatusCreated   OrderStatusType = "CREATED"
	OrderStatusPaid      OrderStatusType = "PAID"
	OrderStatusCancelled OrderStatusType = "CANCELLED"
)

type TransactionType string

const (
	TransactionTypeInitial    TransactionType = "INITIAL"
	TransactionTypeDebit      TransactionType = "DEBIT"
	TransactionTypeRefund     TransactionType = "REFUND"
	TransactionTypeAdjustment TransactionType = "ADJUSTMENT"
)

// PaymentMarkerState состояние локальной отметки шага оплаты. Отметка pending
// коммитится до вызова леджера, committed - вместе с переводом заказа в PAID.
type PaymentMarkerState string

const (
	PaymentMarkerPending   PaymentMarkerState = "pending"
	PaymentMarkerCommitted PaymentMarkerState = "committed"
)
