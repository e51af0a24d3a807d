package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/spavnit/marketpay/internal/config"
	"github.com/spavnit/marketpay/internal/events"
	"github.com/spavnit/marketpay/internal/repository/pgrepo"
	"github.com/spavnit/marketpay/internal/repository/repoargs"
	"github.com/spavnit/marketpay/internal/service"
	"github.com/spavnit/marketpay/internal/transport/api/ledgerapi"
	"github.com/spavnit/marketpay/pkg/uow"

	// driver for migration applying postgres.
	_ "github.com/golang-migrate/migrate/v4/database/postgres" //nolint:revive
	// driver to get migrations from files (*.sql in our case).
	_ "github.com/golang-migrate/migrate/v4/source/file" //nolint:revive
	"github.com/jackc/pgx/v5/pgxpool"
)

// LedgerApp сервис балансов: HTTP API плюс консьюмер фактов user-created.
type LedgerApp struct {
	Config *config.LedgerConfig
	Logger *logrus.Logger
}

func NewLedger(conf *config.LedgerConfig, l *logrus.Logger) *LedgerApp {
	return &LedgerApp{
		Config: conf,
		Logger: l,
	}
}

func (a *LedgerApp) Run() error {
	notifyCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	initialBalance, balanceErr := decimal.NewFromString(a.Config.InitialBalance)
	if balanceErr != nil {
		return fmt.Errorf("ledger run: parse initial balance: %s", balanceErr.Error())
	}

	a.Logger.Infof("Starting ledger with config: %+v", a.Config)
	conn, connErr := pgrepo.Connect(notifyCtx, a.Config.MigrationsDir, a.Config.DatabaseDSN, a.Logger)
	if connErr != nil {
		return fmt.Errorf("ledger run: %s", connErr.Error())
	}
	defer conn.Close()

	unitOfWork, uowErr := initLedgerUOW(conn)
	if uowErr != nil {
		return fmt.Errorf("ledger run: %s", uowErr.Error())
	}

	publisher := events.NewPublisher(
		a.Config.KafkaBrokers,
		events.TopicBalanceCreated,
		events.TopicPaymentEvents,
	)
	defer func() {
		if closeErr := publisher.Close(); closeErr != nil {
			a.Logger.WithError(closeErr).Error("closing event publisher")
		}
	}()

	ledgerService, sErr := service.NewLedgerService(unitOfWork, publisher, a.Logger)
	if sErr != nil {
		return fmt.Errorf("ledger run: %s", sErr.Error())
	}

	router := ledgerapi.New(ledgerapi.RouterArgs{
		Logger:        a.Logger,
		LedgerService: ledgerService,
		JWTSecretKey:  []byte(a.Config.JWTUserSecret),
	})

	errChan := make(chan error, 1)

	go func() {
		if runErr := router.Run(a.Config.RunAddress); runErr != nil {
			errChan <- runErr
		}
	}()

	consumer := events.NewConsumer(a.Config.KafkaBrokers, a.Config.KafkaGroupID, a.Logger).
		Handle(events.TopicUserCreated, userCreatedHandler(ledgerService, initialBalance))

	go consumer.Run(notifyCtx)

	select {
	case <-notifyCtx.Done():
		return notifyCtx.Err() //nolint:wrapcheck
	case err := <-errChan:
		return err
	}
}

// userCreatedHandler создает стартовый баланс по факту регистрации. Повторная
// доставка безопасна: создание идемпотентно по userID.
func userCreatedHandler(ledgerService *service.LedgerService, initialBalance decimal.Decimal) events.HandlerFunc {
	return func(ctx context.Context, value []byte) error {
		var event events.UserCreatedEvent
		if err := json.Unmarshal(value, &event); err != nil {
			return fmt.Errorf("unmarshal user-created event: %s", err.Error())
		}

		_, err := ledgerService.CreateInitialBalance(ctx, event.UserID, event.Email, initialBalance)
		if err != nil {
			return fmt.Errorf("handle user-created event: %s", err.Error())
		}
		return nil
	}
}

func initLedgerUOW(conn *pgxpool.Pool) (*uow.UnitOfWork, error) {
	unitOfWork := uow.NewUnitOfWork(conn)

	// balance repo
	balanceRepoFactoryFn := func(dbtx uow.DBTX) uow.Repository {
		return pgrepo.NewBalanceRepository(dbtx)
	}
	if regErr := unitOfWork.Register(uow.RepositoryName(repoargs.BalanceRepoName), balanceRepoFactoryFn); regErr != nil {
		return nil, fmt.Errorf("init UOW: %s", regErr.Error())
	}

	// transaction repo
	transactionRepoFactoryFn := func(dbtx uow.DBTX) uow.Repository {
		return pgrepo.NewTransactionRepository(dbtx)
	}
	if regErr := unitOfWork.Register(
		uow.RepositoryName(repoargs.TransactionRepoName),
		transactionRepoFactoryFn,
	); regErr != nil {
		return nil, fmt.Errorf("init UOW: %s", regErr.Error())
	}

	return unitOfWork, nil
}
