package orderapi

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/spavnit/marketpay/internal/domain"
)

type OrderItemResponse struct {
	ID           int64           `json:"id"`
	ProductID    int64           `json:"productId"`
	ProductName  string          `json:"productName"`
	Price        decimal.Decimal `json:"price"`
	Category     string          `json:"productCategory"`
	Quantity     int32           `json:"quantity"`
	DownloadLink *string         `json:"downloadLink,omitempty"`
}

type OrderResponse struct {
	ID                 int64                  `json:"id"`
	UserID             int64                  `json:"userId"`
	Email              string                 `json:"email"`
	Status             domain.OrderStatusType `json:"status"`
	TotalPrice         decimal.Decimal        `json:"totalPrice"`
	Items              []OrderItemResponse    `json:"items"`
	CreatedAt          time.Time              `json:"createdAt"`
	PaidAt             *time.Time             `json:"paidAt,omitempty"`
	CancelledAt        *time.Time             `json:"cancelledAt,omitempty"`
	CancellationReason string                 `json:"cancellationReason,omitempty"`
	CancelledBy        string                 `json:"cancelledBy,omitempty"`
}

func newOrderResponse(o *domain.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemResponse{
			ID:           it.ID,
			ProductID:    it.ProductID,
			ProductName:  it.ProductName,
			Price:        it.ProductPrice,
			Category:     it.Category,
			Quantity:     it.Quantity,
			DownloadLink: it.DownloadLink,
		})
	}
	return OrderResponse{
		ID:                 o.ID,
		UserID:             o.UserID,
		Email:              o.Email,
		Status:             o.Status,
		TotalPrice:         o.TotalPrice,
		Items:              items,
		CreatedAt:          o.CreatedAt,
		PaidAt:             o.PaidAt,
		CancelledAt:        o.CancelledAt,
		CancellationReason: o.CancellationReason,
		CancelledBy:        o.CancelledBy,
	}
}

func newOrderListResponse(orders []domain.Order) []OrderResponse {
	resp := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		resp = append(resp, newOrderResponse(&orders[i]))
	}
	return resp
}
