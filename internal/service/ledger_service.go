package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/spavnit/marketpay/internal/domain"
	"github.com/spavnit/marketpay/internal/events"
	"github.com/spavnit/marketpay/internal/repository/repoargs"
	"github.com/spavnit/marketpay/pkg/uow"
)

// LedgerService владеет балансами и журналом операций. Любая мутация - одна
// транзакция БД поверх строки баланса, взятой через FOR UPDATE: конкурентные
// операции по одному userID не пересекаются между чтением и записью.
type LedgerService struct {
	uow         uow.UOW
	balanceRepo BalanceRepository
	transRepo   TransactionRepository
	publisher   EventPublisher
	l           *logrus.Entry
}

func NewLedgerService(u uow.UOW, publisher EventPublisher, l *logrus.Logger) (*LedgerService, error) {
	balanceRepo, balanceRepoErr := uow.GetRepositoryAs[BalanceRepository](
		u, uow.RepositoryName(repoargs.BalanceRepoName))
	if balanceRepoErr != nil {
		return nil, balanceRepoErr
	}
	transRepo, transRepoErr := uow.GetRepositoryAs[TransactionRepository](
		u, uow.RepositoryName(repoargs.TransactionRepoName))
	if transRepoErr != nil {
		return nil, transRepoErr
	}
	return &LedgerService{
		uow:         u,
		balanceRepo: balanceRepo,
		transRepo:   transRepo,
		publisher:   publisher,
		l:           l.WithField("component", "ledger"),
	}, nil
}

// CreateInitialBalance создает баланс со стартовой суммой и транзакцией INITIAL.
// Идемпотентна: если баланс для userID уже существует, возвращает его без изменений.
// Вызывается обработчиком факта user-created, который может прийти повторно.
func (s *LedgerService) CreateInitialBalance(
	ctx context.Context,
	userID int64,
	email string,
	amount decimal.Decimal,
) (*domain.Balance, error) {
	var balance *domain.Balance
	var created bool

	txErr := s.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		balanceRepo, transRepo, reposErr := s.ledgerRepos(tx)
		if reposErr != nil {
			return reposErr
		}

		existing, existsErr := balanceRepo.ExistsByUserID(c, userID)
		if existsErr != nil {
			return existsErr //nolint:wrapcheck
		}
		if existing {
			var getErr error
			balance, getErr = balanceRepo.GetByUserID(c, userID)
			return getErr //nolint:wrapcheck
		}

		var createErr error
		balance, createErr = balanceRepo.Create(c, userID, email, amount)
		if createErr != nil {
			return createErr //nolint:wrapcheck
		}

		// Нулевой стартовый баланс не порождает записи в журнале.
		if amount.IsPositive() {
			_, transErr := transRepo.Create(c, repoargs.TransactionCreate{
				UserID:        userID,
				Email:         email,
				Type:          domain.TransactionTypeInitial,
				Amount:        amount,
				BalanceBefore: decimal.Zero,
				BalanceAfter:  amount,
				Description:   "initial balance on registration",
			})
			if transErr != nil {
				return transErr //nolint:wrapcheck
			}
		}
		created = true
		return nil
	})
	if txErr != nil {
		return nil, fmt.Errorf("creating initial balance: %w", txErr)
	}

	if !created {
		s.l.WithField("userID", userID).Warn("balance already exists, skipping initial grant")
		return balance, nil
	}

	s.publishBalanceCreated(ctx, balance)
	return balance, nil
}

type DebitArgs struct {
	UserID      int64
	Amount      decimal.Decimal
	OrderID     *int64
	Description string
}

// Debit списывает средства с баланса и добавляет транзакцию DEBIT.
//
// Возвращаемые бизнес-ошибки:
//   - domain.ErrBalanceNotFound - баланс отсутствует;
//   - domain.ErrInsufficientFunds - недостаточно средств, состояние не изменено;
//   - domain.ErrDuplicateDebit - списание с таким OrderID уже зарегистрировано,
//     повторное не выполняется.
func (s *LedgerService) Debit(ctx context.Context, args DebitArgs) (*domain.Balance, error) {
	var balance *domain.Balance

	txErr := s.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		balanceRepo, transRepo, reposErr := s.ledgerRepos(tx)
		if reposErr != nil {
			return reposErr
		}

		current, lockErr := lockBalance(c, balanceRepo, args.UserID)
		if lockErr != nil {
			return lockErr
		}

		if args.OrderID != nil {
			exists, existsErr := transRepo.ExistsDebitForOrder(c, *args.OrderID)
			if existsErr != nil {
				return existsErr //nolint:wrapcheck
			}
			if exists {
				return fmt.Errorf("order %d: %w", *args.OrderID, domain.ErrDuplicateDebit)
			}
		}

		if args.Amount.GreaterThan(current.Amount) {
			return fmt.Errorf(
				"balance %s, requested %s: %w",
				current.Amount, args.Amount, domain.ErrInsufficientFunds,
			)
		}

		newAmount := current.Amount.Sub(args.Amount)
		updated, updErr := balanceRepo.UpdateAmount(c, args.UserID, newAmount)
		if updErr != nil {
			return updErr //nolint:wrapcheck
		}

		_, transErr := transRepo.Create(c, repoargs.TransactionCreate{
			UserID:        current.UserID,
			Email:         current.Email,
			Type:          domain.TransactionTypeDebit,
			Amount:        args.Amount,
			BalanceBefore: current.Amount,
			BalanceAfter:  newAmount,
			OrderID:       args.OrderID,
			Description:   defaultIfBlank(args.Description, "order payment"),
		})
		if transErr != nil {
			return transErr //nolint:wrapcheck
		}

		balance = updated
		return nil
	})
	if txErr != nil {
		return nil, fmt.Errorf("debiting user %d: %w", args.UserID, txErr)
	}

	s.publishPaymentEvent(ctx, balance, args)
	return balance, nil
}

// Refund зачисляет средства обратно на баланс с транзакцией REFUND. Верхней границы
// нет: операция падает только если баланс не существует.
func (s *LedgerService) Refund(ctx context.Context, args DebitArgs) (*domain.Balance, error) {
	var balance *domain.Balance

	txErr := s.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		balanceRepo, transRepo, reposErr := s.ledgerRepos(tx)
		if reposErr != nil {
			return reposErr
		}

		current, lockErr := lockBalance(c, balanceRepo, args.UserID)
		if lockErr != nil {
			return lockErr
		}

		newAmount := current.Amount.Add(args.Amount)
		updated, updErr := balanceRepo.UpdateAmount(c, args.UserID, newAmount)
		if updErr != nil {
			return updErr //nolint:wrapcheck
		}

		_, transErr := transRepo.Create(c, repoargs.TransactionCreate{
			UserID:        current.UserID,
			Email:         current.Email,
			Type:          domain.TransactionTypeRefund,
			Amount:        args.Amount,
			BalanceBefore: current.Amount,
			BalanceAfter:  newAmount,
			OrderID:       args.OrderID,
			Description:   defaultIfBlank(args.Description, "refund for cancelled order"),
		})
		if transErr != nil {
			return transErr //nolint:wrapcheck
		}

		balance = updated
		return nil
	})
	if txErr != nil {
		return nil, fmt.Errorf("refunding user %d: %w", args.UserID, txErr)
	}
	return balance, nil
}

// Adjust применяет знаковую корректировку администратора. Транзакция ADJUSTMENT
// хранит модуль суммы; знак восстанавливается из balance_before/balance_after.
// Если итог стал бы отрицательным - domain.ErrInsufficientFunds без изменений.
func (s *LedgerService) Adjust(
	ctx context.Context,
	userID int64,
	signedAmount decimal.Decimal,
	description string,
) (*domain.Balance, error) {
	var balance *domain.Balance

	txErr := s.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		balanceRepo, transRepo, reposErr := s.ledgerRepos(tx)
		if reposErr != nil {
			return reposErr
		}

		current, lockErr := lockBalance(c, balanceRepo, userID)
		if lockErr != nil {
			return lockErr
		}

		newAmount := current.Amount.Add(signedAmount)
		if newAmount.IsNegative() {
			return fmt.Errorf("adjustment would make balance negative: %w", domain.ErrInsufficientFunds)
		}

		updated, updErr := balanceRepo.UpdateAmount(c, userID, newAmount)
		if updErr != nil {
			return updErr //nolint:wrapcheck
		}

		_, transErr := transRepo.Create(c, repoargs.TransactionCreate{
			UserID:        current.UserID,
			Email:         current.Email,
			Type:          domain.TransactionTypeAdjustment,
			Amount:        signedAmount.Abs(),
			BalanceBefore: current.Amount,
			BalanceAfter:  newAmount,
			Description:   description,
		})
		if transErr != nil {
			return transErr //nolint:wrapcheck
		}

		balance = updated
		return nil
	})
	if txErr != nil {
		return nil, fmt.Errorf("adjusting balance of user %d: %w", userID, txErr)
	}
	return balance, nil
}

// GetBalance снимок баланса без блокировок.
func (s *LedgerService) GetBalance(ctx context.Context, userID int64) (*domain.Balance, error) {
	balance, err := s.balanceRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, convertNotFound(err, domain.ErrBalanceNotFound)
	}
	return balance, nil
}

func (s *LedgerService) GetAllBalances(ctx context.Context) ([]domain.Balance, error) {
	balances, err := s.balanceRepo.GetAll(ctx)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return balances, nil
}

// GetTransactions журнал операций юзера, от новых к старым.
func (s *LedgerService) GetTransactions(ctx context.Context, userID int64) ([]domain.Transaction, error) {
	transactions, err := s.transRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return transactions, nil
}

func (s *LedgerService) GetAllTransactions(ctx context.Context) ([]domain.Transaction, error) {
	transactions, err := s.transRepo.GetAll(ctx)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return transactions, nil
}

func (s *LedgerService) ledgerRepos(tx uow.TX) (BalanceRepository, TransactionRepository, error) {
	balanceRepo, balanceRepoErr := uow.GetAs[BalanceRepository](
		tx, uow.RepositoryName(repoargs.BalanceRepoName))
	if balanceRepoErr != nil {
		return nil, nil, balanceRepoErr //nolint:wrapcheck
	}
	transRepo, transRepoErr := uow.GetAs[TransactionRepository](
		tx, uow.RepositoryName(repoargs.TransactionRepoName))
	if transRepoErr != nil {
		return nil, nil, transRepoErr //nolint:wrapcheck
	}
	return balanceRepo, transRepo, nil
}

func lockBalance(ctx context.Context, repo BalanceRepository, userID int64) (*domain.Balance, error) {
	balance, err := repo.GetByUserIDForUpdate(ctx, userID)
	if err != nil {
		return nil, convertNotFound(err, domain.ErrBalanceNotFound)
	}
	return balance, nil
}

// publishBalanceCreated отправляет факт создания баланса профильному сервису.
// Ошибка публикации только логируется: баланс уже закоммичен.
func (s *LedgerService) publishBalanceCreated(ctx context.Context, balance *domain.Balance) {
	event := events.BalanceCreatedEvent{
		Envelope: events.Envelope{EventID: events.NewEventID()},
		UserID:   balance.UserID,
		Email:    balance.Email,
		Amount:   balance.Amount,
	}
	key := strconv.FormatInt(balance.UserID, 10)
	if err := s.publisher.Publish(ctx, events.TopicBalanceCreated, key, event); err != nil {
		s.l.WithError(err).WithField("userID", balance.UserID).Error("publishing balance-created event")
	}
}

// publishPaymentEvent отправляет факт успешного списания. Ошибка публикации
// только логируется.
func (s *LedgerService) publishPaymentEvent(ctx context.Context, balance *domain.Balance, args DebitArgs) {
	event := events.PaymentEvent{
		Envelope: events.Envelope{EventID: events.NewEventID()},
		OrderID:  args.OrderID,
		UserID:   balance.UserID,
		Email:    balance.Email,
		Amount:   args.Amount,
		Status:   "SUCCESS",
		Message:  "payment completed",
	}
	key := strconv.FormatInt(balance.UserID, 10)
	if err := s.publisher.Publish(ctx, events.TopicPaymentEvents, key, event); err != nil {
		s.l.WithError(err).WithField("userID", balance.UserID).Error("publishing payment event")
	}
}
