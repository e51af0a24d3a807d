package domain

import (
	"errors"
	"fmt"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrDuplicateKey   = errors.New("duplicate key")
	ErrUnknown        = errors.New("unknown error")

	ErrEmptyCart          = errors.New("cart is empty")
	ErrOrderNotFound      = errors.New("order not found")
	ErrInvalidOrderStatus = errors.New("invalid order status")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrBalanceNotFound    = errors.New("balance not found")

	// ErrDuplicateDebit леджер уже зарегистрировал списание с таким orderId.
	// Для оркестратора это сигнал, что повторный вызов оплаты догоняет уже
	// выполненное списание, а не повод списать еще раз.
	ErrDuplicateDebit = errors.New("debit already registered for order")
)

// PaymentFailedError оплата заказа не прошла. Заказ при этом остается в CREATED.
type PaymentFailedError struct {
	OrderID int64
	Cause   error
}

func NewPaymentFailedError(orderID int64, cause error) error {
	return &PaymentFailedError{OrderID: orderID, Cause: cause}
}

func (e *PaymentFailedError) Error() string {
	return fmt.Sprintf("payment for order %d failed: %s", e.OrderID, e.Cause.Error())
}

func (e *PaymentFailedError) Unwrap() error {
	return e.Cause
}
