package orderapi

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/spavnit/marketpay/internal/domain"
)

type OrderServicer interface {
	Create(ctx context.Context, userID int64, email, token string) (*domain.Order, error)
	Pay(ctx context.Context, orderID int64, email, token string) (*domain.Order, error)
	Cancel(ctx context.Context, orderID int64, adminEmail, reason, token string) (*domain.Order, error)
	GetByID(ctx context.Context, orderID int64, email string) (*domain.Order, error)
	GetByEmail(ctx context.Context, email string) ([]domain.Order, error)
	GetAll(ctx context.Context) ([]domain.Order, error)
}
