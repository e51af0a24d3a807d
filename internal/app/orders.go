package app

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/spavnit/marketpay/internal/config"
	"github.com/spavnit/marketpay/internal/events"
	"github.com/spavnit/marketpay/internal/repository/pgrepo"
	"github.com/spavnit/marketpay/internal/repository/repoargs"
	"github.com/spavnit/marketpay/internal/service"
	"github.com/spavnit/marketpay/internal/transport/api/orderapi"
	"github.com/spavnit/marketpay/internal/transport/cartclient"
	"github.com/spavnit/marketpay/internal/transport/catalogclient"
	"github.com/spavnit/marketpay/internal/transport/ledgerclient"
	"github.com/spavnit/marketpay/pkg/uow"

	// driver for migration applying postgres.
	_ "github.com/golang-migrate/migrate/v4/database/postgres" //nolint:revive
	// driver to get migrations from files (*.sql in our case).
	_ "github.com/golang-migrate/migrate/v4/source/file" //nolint:revive
	"github.com/jackc/pgx/v5/pgxpool"
)

// OrdersApp сервис заказов: оркестратор саги оплаты поверх сервиса балансов.
type OrdersApp struct {
	Config *config.OrdersConfig
	Logger *logrus.Logger
}

func NewOrders(conf *config.OrdersConfig, l *logrus.Logger) *OrdersApp {
	return &OrdersApp{
		Config: conf,
		Logger: l,
	}
}

func (a *OrdersApp) Run() error {
	notifyCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.Logger.Infof("Starting orders with config: %+v", a.Config)
	conn, connErr := pgrepo.Connect(notifyCtx, a.Config.MigrationsDir, a.Config.DatabaseDSN, a.Logger)
	if connErr != nil {
		return fmt.Errorf("orders run: %s", connErr.Error())
	}
	defer conn.Close()

	unitOfWork, uowErr := initOrdersUOW(conn)
	if uowErr != nil {
		return fmt.Errorf("orders run: %s", uowErr.Error())
	}

	publisher := events.NewPublisher(
		a.Config.KafkaBrokers,
		events.TopicOrderCreated,
		events.TopicOrderPaid,
		events.TopicOrderCancelled,
	)
	defer func() {
		if closeErr := publisher.Close(); closeErr != nil {
			a.Logger.WithError(closeErr).Error("closing event publisher")
		}
	}()

	orderService, sErr := service.NewOrderService(service.OrderServiceArgs{
		UOW:       unitOfWork,
		Cart:      cartclient.New(a.Config.CartAddress),
		Catalog:   catalogclient.New(a.Config.CatalogAddress),
		Ledger:    ledgerclient.New(a.Config.LedgerAddress),
		Publisher: publisher,
		Logger:    a.Logger,
	})
	if sErr != nil {
		return fmt.Errorf("orders run: %s", sErr.Error())
	}

	router := orderapi.New(orderapi.RouterArgs{
		Logger:       a.Logger,
		OrderService: orderService,
		JWTSecretKey: []byte(a.Config.JWTUserSecret),
	})

	errChan := make(chan error, 1)

	go func() {
		if runErr := router.Run(a.Config.RunAddress); runErr != nil {
			errChan <- runErr
		}
	}()

	select {
	case <-notifyCtx.Done():
		return notifyCtx.Err() //nolint:wrapcheck
	case err := <-errChan:
		return err
	}
}

func initOrdersUOW(conn *pgxpool.Pool) (*uow.UnitOfWork, error) {
	unitOfWork := uow.NewUnitOfWork(conn)

	// order repo
	orderRepoFactoryFn := func(dbtx uow.DBTX) uow.Repository {
		return pgrepo.NewOrderRepository(dbtx)
	}
	if regErr := unitOfWork.Register(uow.RepositoryName(repoargs.OrderRepoName), orderRepoFactoryFn); regErr != nil {
		return nil, fmt.Errorf("init UOW: %s", regErr.Error())
	}

	return unitOfWork, nil
}
