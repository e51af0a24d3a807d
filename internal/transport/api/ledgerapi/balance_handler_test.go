package ledgerapi

import (
	"bytes"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/spavnit/marketpay/internal/domain"
	"github.com/spavnit/marketpay/internal/logger"
	"github.com/spavnit/marketpay/internal/service"
	"github.com/spavnit/marketpay/internal/transport/api/ledgerapi/mocks"
	"github.com/spavnit/marketpay/internal/transport/api/testutils"
	"github.com/spavnit/marketpay/internal/transport/api/tokens"
)

type BalanceHandlerTestSuite struct {
	suite.Suite
	router            *gin.Engine
	mockLedgerService *mocks.MockLedgerServicer
	jwtSecret         []byte
	userToken         string
	adminToken        string
}

func TestBalanceHandlerSuite(t *testing.T) {
	suite.Run(t, new(BalanceHandlerTestSuite))
}

func (s *BalanceHandlerTestSuite) SetupTest() {
	mockCtrl := gomock.NewController(s.T())
	defer mockCtrl.Finish()

	s.mockLedgerService = mocks.NewMockLedgerServicer(mockCtrl)
	s.jwtSecret = []byte("super secret key")

	var tokenErr error
	s.userToken, tokenErr = tokens.GenerateUserJWT(1, "user@example.com", "USER", time.Hour, s.jwtSecret)
	s.Require().NoError(tokenErr)
	s.adminToken, tokenErr = tokens.GenerateUserJWT(2, "admin@example.com", tokens.RoleAdmin, time.Hour, s.jwtSecret)
	s.Require().NoError(tokenErr)

	s.router = New(RouterArgs{
		Logger:        logger.New(io.Discard),
		LedgerService: s.mockLedgerService,
		JWTSecretKey:  s.jwtSecret,
	})
}

func (s *BalanceHandlerTestSuite) TestShow() {
	balance := &domain.Balance{UserID: 1, Email: "user@example.com", Amount: decimal.NewFromInt(70)}

	s.mockLedgerService.EXPECT().
		GetBalance(gomock.Any(), int64(1)).
		Return(balance, nil).Times(1)

	resp, err := testutils.MakeRequest(testutils.RequestArgs{
		Router: s.router,
		Method: http.MethodGet,
		URL:    RouteGroup + BalanceRoute,
	}, testutils.WithBearerToken(s.userToken))
	s.Require().NoError(err)
	defer resp.Body.Close() //nolint:errcheck

	s.Equal(http.StatusOK, resp.StatusCode)
}

func (s *BalanceHandlerTestSuite) TestDebit() {
	updated := &domain.Balance{UserID: 1, Amount: decimal.NewFromInt(70)}

	s.mockLedgerService.EXPECT().Debit(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ interface{}, args service.DebitArgs) (*domain.Balance, error) {
			s.Equal(int64(1), args.UserID)
			switch {
			case args.Amount.Equal(decimal.NewFromInt(30)):
				return updated, nil
			case args.Amount.Equal(decimal.NewFromInt(1000)):
				return nil, domain.ErrInsufficientFunds
			default:
				return nil, domain.ErrDuplicateDebit
			}
		},
	).Times(3)

	cases := []struct {
		name       string
		payload    []byte
		wantStatus int
	}{
		{
			name:       "all ok",
			payload:    []byte(`{"amount":"30","orderId":55}`),
			wantStatus: http.StatusOK,
		}, {
			name:       "insufficient funds",
			payload:    []byte(`{"amount":"1000","orderId":55}`),
			wantStatus: http.StatusPaymentRequired,
		}, {
			name:       "duplicate order debit",
			payload:    []byte(`{"amount":"31","orderId":55}`),
			wantStatus: http.StatusConflict,
		}, {
			name:       "negative amount rejected",
			payload:    []byte(`{"amount":"-5"}`),
			wantStatus: http.StatusBadRequest,
		}, {
			name:       "malformed body",
			payload:    []byte(`{`),
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, t := range cases {
		s.Run(t.name, func() {
			resp, err := testutils.MakeRequest(testutils.RequestArgs{
				Router: s.router,
				Method: http.MethodPost,
				URL:    RouteGroup + DebitRoute,
				Body:   bytes.NewReader(t.payload),
			}, testutils.WithBearerToken(s.userToken), testutils.WithHeader("Content-Type", "application/json"))
			s.Require().NoError(err)
			defer resp.Body.Close() //nolint:errcheck

			s.Equal(t.wantStatus, resp.StatusCode)
		})
	}
}

func (s *BalanceHandlerTestSuite) TestRefund() {
	updated := &domain.Balance{UserID: 7, Amount: decimal.NewFromInt(100)}

	s.mockLedgerService.EXPECT().Refund(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ interface{}, args service.DebitArgs) (*domain.Balance, error) {
			s.Equal(int64(7), args.UserID)
			return updated, nil
		},
	).Times(1)

	cases := []struct {
		name       string
		jwtToken   string
		payload    []byte
		wantStatus int
	}{
		{
			name:       "admin refunds",
			jwtToken:   s.adminToken,
			payload:    []byte(`{"amount":"30","orderId":55}`),
			wantStatus: http.StatusOK,
		}, {
			name:       "forbidden for regular user",
			jwtToken:   s.userToken,
			payload:    []byte(`{"amount":"30"}`),
			wantStatus: http.StatusForbidden,
		},
	}

	for _, t := range cases {
		s.Run(t.name, func() {
			resp, err := testutils.MakeRequest(testutils.RequestArgs{
				Router: s.router,
				Method: http.MethodPost,
				URL:    RouteGroup + "/balance/7/refund",
				Body:   bytes.NewReader(t.payload),
			}, testutils.WithBearerToken(t.jwtToken), testutils.WithHeader("Content-Type", "application/json"))
			s.Require().NoError(err)
			defer resp.Body.Close() //nolint:errcheck

			s.Equal(t.wantStatus, resp.StatusCode)
		})
	}
}

func (s *BalanceHandlerTestSuite) TestAdjust() {
	updated := &domain.Balance{UserID: 7, Amount: decimal.NewFromInt(5)}

	s.mockLedgerService.EXPECT().
		Adjust(gomock.Any(), int64(7), gomock.Any(), "manual correction").
		Return(updated, nil).Times(1)
	s.mockLedgerService.EXPECT().
		Adjust(gomock.Any(), int64(8), gomock.Any(), "manual correction").
		Return(nil, domain.ErrInsufficientFunds).Times(1)

	cases := []struct {
		name       string
		url        string
		payload    []byte
		wantStatus int
	}{
		{
			name:       "all ok",
			url:        RouteGroup + "/balance/7/adjust",
			payload:    []byte(`{"amount":"-5","description":"manual correction"}`),
			wantStatus: http.StatusOK,
		}, {
			name:       "would go negative",
			url:        RouteGroup + "/balance/8/adjust",
			payload:    []byte(`{"amount":"-500","description":"manual correction"}`),
			wantStatus: http.StatusPaymentRequired,
		}, {
			name:       "description is required",
			url:        RouteGroup + "/balance/7/adjust",
			payload:    []byte(`{"amount":"-5"}`),
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, t := range cases {
		s.Run(t.name, func() {
			resp, err := testutils.MakeRequest(testutils.RequestArgs{
				Router: s.router,
				Method: http.MethodPost,
				URL:    t.url,
				Body:   bytes.NewReader(t.payload),
			}, testutils.WithBearerToken(s.adminToken), testutils.WithHeader("Content-Type", "application/json"))
			s.Require().NoError(err)
			defer resp.Body.Close() //nolint:errcheck

			s.Equal(t.wantStatus, resp.StatusCode)
		})
	}
}

func (s *BalanceHandlerTestSuite) TestAdminReads() {
	s.mockLedgerService.EXPECT().
		GetAllBalances(gomock.Any()).
		Return([]domain.Balance{{UserID: 1}, {UserID: 2}}, nil).Times(1)
	s.mockLedgerService.EXPECT().
		GetAllTransactions(gomock.Any()).
		Return([]domain.Transaction{{ID: 1}}, nil).Times(1)
	s.mockLedgerService.EXPECT().
		GetBalance(gomock.Any(), int64(404)).
		Return(nil, domain.ErrBalanceNotFound).Times(1)

	cases := []struct {
		name       string
		url        string
		jwtToken   string
		wantStatus int
	}{
		{name: "all balances", url: RouteGroup + AllBalancesRoute, jwtToken: s.adminToken, wantStatus: http.StatusOK},
		{name: "all transactions", url: RouteGroup + AllTransactionsRoute, jwtToken: s.adminToken, wantStatus: http.StatusOK},
		{name: "missing balance", url: RouteGroup + "/balance/404", jwtToken: s.adminToken, wantStatus: http.StatusNotFound},
		{name: "forbidden for regular user", url: RouteGroup + AllBalancesRoute, jwtToken: s.userToken, wantStatus: http.StatusForbidden},
	}

	for _, t := range cases {
		s.Run(t.name, func() {
			resp, err := testutils.MakeRequest(testutils.RequestArgs{
				Router: s.router,
				Method: http.MethodGet,
				URL:    t.url,
			}, testutils.WithBearerToken(t.jwtToken))
			s.Require().NoError(err)
			defer resp.Body.Close() //nolint:errcheck

			s.Equal(t.wantStatus, resp.StatusCode)
		})
	}
}
