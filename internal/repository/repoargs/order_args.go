package repoargs

import (
	"github.com/shopspring/decimal"
)

type OrderItemCreate struct {
	ProductID    int64
	ProductName  string
	ProductPrice decimal.Decimal
	Category     string
	Quantity     int32
}

type OrderCreate struct {
	UserID     int64
	Email      string
	TotalPrice decimal.Decimal
	Items      []OrderItemCreate
}

type OrderCancel struct {
	ID          int64
	Reason      string
	CancelledBy string
}
