package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/spavnit/marketpay/internal/domain"
	"github.com/spavnit/marketpay/internal/events"
	"github.com/spavnit/marketpay/internal/logger"
	"github.com/spavnit/marketpay/internal/repository/repoargs"
	"github.com/spavnit/marketpay/internal/service/mocks"
	"github.com/spavnit/marketpay/pkg/uow"
	uowmocks "github.com/spavnit/marketpay/pkg/uow/mocks"
)

type LedgerServiceTestSuite struct {
	suite.Suite
	mockCtrl        *gomock.Controller
	mockUOW         *uowmocks.MockUOW
	mockTX          *uowmocks.MockTX
	mockBalanceRepo *mocks.MockBalanceRepository
	mockTransRepo   *mocks.MockTransactionRepository
	mockPublisher   *mocks.MockEventPublisher
	service         *LedgerService
}

func TestLedgerServiceSuite(t *testing.T) {
	suite.Run(t, new(LedgerServiceTestSuite))
}

func (s *LedgerServiceTestSuite) SetupTest() {
	s.mockCtrl = gomock.NewController(s.T())
	s.mockUOW = uowmocks.NewMockUOW(s.mockCtrl)
	s.mockTX = uowmocks.NewMockTX(s.mockCtrl)
	s.mockBalanceRepo = mocks.NewMockBalanceRepository(s.mockCtrl)
	s.mockTransRepo = mocks.NewMockTransactionRepository(s.mockCtrl)
	s.mockPublisher = mocks.NewMockEventPublisher(s.mockCtrl)

	s.mockUOW.EXPECT().
		GetRepository(uow.RepositoryName(repoargs.BalanceRepoName)).
		Return(s.mockBalanceRepo, nil).AnyTimes()
	s.mockUOW.EXPECT().
		GetRepository(uow.RepositoryName(repoargs.TransactionRepoName)).
		Return(s.mockTransRepo, nil).AnyTimes()

	// Внутри транзакции репозитории достаются из TX.
	s.mockTX.EXPECT().
		Get(uow.RepositoryName(repoargs.BalanceRepoName)).
		Return(s.mockBalanceRepo, nil).AnyTimes()
	s.mockTX.EXPECT().
		Get(uow.RepositoryName(repoargs.TransactionRepoName)).
		Return(s.mockTransRepo, nil).AnyTimes()

	var err error
	s.service, err = NewLedgerService(s.mockUOW, s.mockPublisher, logger.New(io.Discard))
	s.Require().NoError(err)
}

func (s *LedgerServiceTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

// expectDo транслирует uow.Do напрямую в переданную функцию поверх mockTX.
func (s *LedgerServiceTestSuite) expectDo() {
	s.mockUOW.EXPECT().Do(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, fn func(context.Context, uow.TX) error) error {
			return fn(context.Background(), s.mockTX)
		},
	).AnyTimes()
}

func (s *LedgerServiceTestSuite) TestCreateInitialBalance() {
	var userID int64 = 7
	email := "user@example.com"
	amount := decimal.NewFromInt(100)

	balance := &domain.Balance{
		UserID:    userID,
		Email:     email,
		Amount:    amount,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	s.expectDo()
	s.mockBalanceRepo.EXPECT().ExistsByUserID(gomock.Any(), userID).Return(false, nil)
	s.mockBalanceRepo.EXPECT().Create(gomock.Any(), userID, email, amount).Return(balance, nil)

	var createdTrans repoargs.TransactionCreate
	s.mockTransRepo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, args repoargs.TransactionCreate) (*domain.Transaction, error) {
			createdTrans = args
			return &domain.Transaction{}, nil
		},
	)
	s.mockPublisher.EXPECT().
		Publish(gomock.Any(), events.TopicBalanceCreated, "7", gomock.Any()).
		Return(nil)

	got, err := s.service.CreateInitialBalance(context.Background(), userID, email, amount)
	s.Require().NoError(err)
	s.Equal(balance, got)

	s.Equal(domain.TransactionTypeInitial, createdTrans.Type)
	s.True(createdTrans.BalanceBefore.IsZero())
	s.True(createdTrans.BalanceAfter.Equal(amount))
}

func (s *LedgerServiceTestSuite) TestCreateInitialBalance_AlreadyExists() {
	var userID int64 = 7
	existing := &domain.Balance{UserID: userID, Amount: decimal.NewFromInt(42)}

	s.expectDo()
	s.mockBalanceRepo.EXPECT().ExistsByUserID(gomock.Any(), userID).Return(true, nil)
	s.mockBalanceRepo.EXPECT().GetByUserID(gomock.Any(), userID).Return(existing, nil)

	// Повторная доставка факта регистрации: баланс не пересоздается,
	// событие не публикуется.
	s.mockBalanceRepo.EXPECT().Create(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	s.mockPublisher.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	got, err := s.service.CreateInitialBalance(context.Background(), userID, "user@example.com", decimal.NewFromInt(100))
	s.Require().NoError(err)
	s.Equal(existing, got)
}

func (s *LedgerServiceTestSuite) TestDebit() {
	var userID int64 = 7
	var orderID int64 = 55
	before := decimal.NewFromInt(100)
	amount := decimal.NewFromInt(30)
	after := decimal.NewFromInt(70)

	current := &domain.Balance{UserID: userID, Email: "user@example.com", Amount: before}
	updated := &domain.Balance{UserID: userID, Email: "user@example.com", Amount: after}

	s.expectDo()
	s.mockBalanceRepo.EXPECT().GetByUserIDForUpdate(gomock.Any(), userID).Return(current, nil)
	s.mockTransRepo.EXPECT().ExistsDebitForOrder(gomock.Any(), orderID).Return(false, nil)
	s.mockBalanceRepo.EXPECT().UpdateAmount(gomock.Any(), userID, decEq(after)).Return(updated, nil)

	var createdTrans repoargs.TransactionCreate
	s.mockTransRepo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, args repoargs.TransactionCreate) (*domain.Transaction, error) {
			createdTrans = args
			return &domain.Transaction{}, nil
		},
	)
	s.mockPublisher.EXPECT().
		Publish(gomock.Any(), events.TopicPaymentEvents, "7", gomock.Any()).
		Return(nil)

	got, err := s.service.Debit(context.Background(), DebitArgs{
		UserID:  userID,
		Amount:  amount,
		OrderID: &orderID,
	})
	s.Require().NoError(err)
	s.True(got.Amount.Equal(after))

	// Сумма транзакции сходится с изменением баланса.
	s.Equal(domain.TransactionTypeDebit, createdTrans.Type)
	s.True(createdTrans.BalanceBefore.Sub(createdTrans.BalanceAfter).Equal(amount))
	s.Require().NotNil(createdTrans.OrderID)
	s.Equal(orderID, *createdTrans.OrderID)
}

func (s *LedgerServiceTestSuite) TestDebit_InsufficientFunds() {
	var userID int64 = 7
	current := &domain.Balance{UserID: userID, Amount: decimal.NewFromInt(10)}

	s.expectDo()
	s.mockBalanceRepo.EXPECT().GetByUserIDForUpdate(gomock.Any(), userID).Return(current, nil)

	// Баланс не меняется, транзакция не пишется.
	s.mockBalanceRepo.EXPECT().UpdateAmount(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	s.mockTransRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)
	s.mockPublisher.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	_, err := s.service.Debit(context.Background(), DebitArgs{
		UserID: userID,
		Amount: decimal.NewFromInt(30),
	})
	s.Require().ErrorIs(err, domain.ErrInsufficientFunds)
}

func (s *LedgerServiceTestSuite) TestDebit_DuplicateOrder() {
	var userID int64 = 7
	var orderID int64 = 55
	current := &domain.Balance{UserID: userID, Amount: decimal.NewFromInt(100)}

	s.expectDo()
	s.mockBalanceRepo.EXPECT().GetByUserIDForUpdate(gomock.Any(), userID).Return(current, nil)
	s.mockTransRepo.EXPECT().ExistsDebitForOrder(gomock.Any(), orderID).Return(true, nil)

	// Повторное списание по тому же заказу не выполняется.
	s.mockBalanceRepo.EXPECT().UpdateAmount(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	s.mockTransRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)

	_, err := s.service.Debit(context.Background(), DebitArgs{
		UserID:  userID,
		Amount:  decimal.NewFromInt(30),
		OrderID: &orderID,
	})
	s.Require().ErrorIs(err, domain.ErrDuplicateDebit)
}

func (s *LedgerServiceTestSuite) TestDebit_BalanceNotFound() {
	var userID int64 = 404

	s.expectDo()
	s.mockBalanceRepo.EXPECT().
		GetByUserIDForUpdate(gomock.Any(), userID).
		Return(nil, domain.ErrRecordNotFound)

	_, err := s.service.Debit(context.Background(), DebitArgs{
		UserID: userID,
		Amount: decimal.NewFromInt(30),
	})
	s.Require().ErrorIs(err, domain.ErrBalanceNotFound)
}

func (s *LedgerServiceTestSuite) TestRefund() {
	var userID int64 = 7
	var orderID int64 = 55
	before := decimal.NewFromInt(50)
	amount := decimal.NewFromInt(30)
	after := decimal.NewFromInt(80)

	current := &domain.Balance{UserID: userID, Email: "user@example.com", Amount: before}
	updated := &domain.Balance{UserID: userID, Email: "user@example.com", Amount: after}

	s.expectDo()
	s.mockBalanceRepo.EXPECT().GetByUserIDForUpdate(gomock.Any(), userID).Return(current, nil)
	s.mockBalanceRepo.EXPECT().UpdateAmount(gomock.Any(), userID, decEq(after)).Return(updated, nil)

	var createdTrans repoargs.TransactionCreate
	s.mockTransRepo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, args repoargs.TransactionCreate) (*domain.Transaction, error) {
			createdTrans = args
			return &domain.Transaction{}, nil
		},
	)

	got, err := s.service.Refund(context.Background(), DebitArgs{
		UserID:  userID,
		Amount:  amount,
		OrderID: &orderID,
	})
	s.Require().NoError(err)
	s.True(got.Amount.Equal(after))
	s.Equal(domain.TransactionTypeRefund, createdTrans.Type)
	s.True(createdTrans.BalanceAfter.Sub(createdTrans.BalanceBefore).Equal(amount))
}

func (s *LedgerServiceTestSuite) TestAdjust() {
	var userID int64 = 7
	current := &domain.Balance{UserID: userID, Amount: decimal.NewFromInt(10)}
	updated := &domain.Balance{UserID: userID, Amount: decimal.NewFromInt(15)}

	s.expectDo()
	s.mockBalanceRepo.EXPECT().GetByUserIDForUpdate(gomock.Any(), userID).Return(current, nil)
	s.mockBalanceRepo.EXPECT().UpdateAmount(gomock.Any(), userID, decEq(decimal.NewFromInt(15))).Return(updated, nil)

	var createdTrans repoargs.TransactionCreate
	s.mockTransRepo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, args repoargs.TransactionCreate) (*domain.Transaction, error) {
			createdTrans = args
			return &domain.Transaction{}, nil
		},
	)

	got, err := s.service.Adjust(context.Background(), userID, decimal.NewFromInt(5), "manual correction")
	s.Require().NoError(err)
	s.True(got.Amount.Equal(decimal.NewFromInt(15)))
	s.Equal(domain.TransactionTypeAdjustment, createdTrans.Type)
}

func (s *LedgerServiceTestSuite) TestAdjust_NegativeResult() {
	var userID int64 = 7
	current := &domain.Balance{UserID: userID, Amount: decimal.NewFromInt(10)}

	s.expectDo()
	s.mockBalanceRepo.EXPECT().GetByUserIDForUpdate(gomock.Any(), userID).Return(current, nil)
	s.mockBalanceRepo.EXPECT().UpdateAmount(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	// Корректировка хранит модуль, но знак учитывается при проверке итога.
	_, err := s.service.Adjust(context.Background(), userID, decimal.NewFromInt(-30), "manual correction")
	s.Require().ErrorIs(err, domain.ErrInsufficientFunds)
}

func (s *LedgerServiceTestSuite) TestGetBalance_NotFound() {
	s.mockBalanceRepo.EXPECT().
		GetByUserID(gomock.Any(), int64(404)).
		Return(nil, domain.ErrRecordNotFound)

	_, err := s.service.GetBalance(context.Background(), 404)
	s.Require().ErrorIs(err, domain.ErrBalanceNotFound)
}

// decEq матчер на равенство decimal по значению, а не по представлению.
type decimalMatcher struct {
	want decimal.Decimal
}

func decEq(want decimal.Decimal) gomock.Matcher {
	return decimalMatcher{want: want}
}

func (m decimalMatcher) Matches(x interface{}) bool {
	got, ok := x.(decimal.Decimal)
	return ok && got.Equal(m.want)
}

func (m decimalMatcher) String() string {
	return "is decimal equal to " + m.want.String()
}
