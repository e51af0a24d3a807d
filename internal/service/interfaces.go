package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/spavnit/marketpay/internal/domain"
	"github.com/spavnit/marketpay/internal/repository/repoargs"
	"github.com/spavnit/marketpay/internal/transport/cartclient"
)

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

type BalanceRepository interface {
	Create(ctx context.Context, userID int64, email string, amount decimal.Decimal) (*domain.Balance, error)
	GetByUserID(ctx context.Context, userID int64) (*domain.Balance, error)
	GetByUserIDForUpdate(ctx context.Context, userID int64) (*domain.Balance, error)
	UpdateAmount(ctx context.Context, userID int64, amount decimal.Decimal) (*domain.Balance, error)
	ExistsByUserID(ctx context.Context, userID int64) (bool, error)
	GetAll(ctx context.Context) ([]domain.Balance, error)
}

type TransactionRepository interface {
	Create(ctx context.Context, args repoargs.TransactionCreate) (*domain.Transaction, error)
	ExistsDebitForOrder(ctx context.Context, orderID int64) (bool, error)
	GetByUserID(ctx context.Context, userID int64) ([]domain.Transaction, error)
	GetAll(ctx context.Context) ([]domain.Transaction, error)
}

type OrderRepository interface {
	Create(ctx context.Context, args repoargs.OrderCreate) (*domain.Order, error)
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.Order, error)
	GetByEmail(ctx context.Context, email string) ([]domain.Order, error)
	GetAll(ctx context.Context) ([]domain.Order, error)
	MarkPaid(ctx context.Context, id int64, paidAt time.Time) (*domain.Order, error)
	MarkCancelled(ctx context.Context, args repoargs.OrderCancel) (*domain.Order, error)
	UpdateItemDownloadLink(ctx context.Context, itemID int64, link string) error
	SetPaymentMarker(ctx context.Context, orderID int64, state domain.PaymentMarkerState) error
}

// CartClient доступ к снимку корзины пользователя (внешний cart-сервис).
type CartClient interface {
	Get(ctx context.Context, token string) (*cartclient.CartResponse, error)
	Clear(ctx context.Context, token string) error
}

// CatalogClient read-only доступ к ссылкам на скачивание (внешний каталог).
type CatalogClient interface {
	DownloadLink(ctx context.Context, productID int64) (string, error)
}

// LedgerClient синхронные вызовы леджера. Токен вызывающего пробрасывается дальше.
type LedgerClient interface {
	Debit(ctx context.Context, token string, amount decimal.Decimal, orderID int64, description string) error
	Refund(
		ctx context.Context,
		token string,
		userID int64,
		amount decimal.Decimal,
		orderID int64,
		description string,
	) error
}

// EventPublisher публикация фактов в шину.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, key string, payload any) error
}
