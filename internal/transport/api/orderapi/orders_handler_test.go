package orderapi

import (
	"bytes"
	"encoding/json"
	"fmt"
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
	"github.com/spavnit/marketpay/internal/transport/api/orderapi/mocks"
	"github.com/spavnit/marketpay/internal/transport/api/testutils"
	"github.com/spavnit/marketpay/internal/transport/api/tokens"
)

type OrdersHandlerTestSuite struct {
	suite.Suite
	router           *gin.Engine
	mockOrderService *mocks.MockOrderServicer
	jwtSecret        []byte
	userToken        string
	adminToken       string
}

func TestOrdersHandlerSuite(t *testing.T) {
	suite.Run(t, new(OrdersHandlerTestSuite))
}

func (s *OrdersHandlerTestSuite) SetupTest() {
	mockCtrl := gomock.NewController(s.T())
	defer mockCtrl.Finish()

	s.mockOrderService = mocks.NewMockOrderServicer(mockCtrl)
	s.jwtSecret = []byte("super secret key")

	var tokenErr error
	s.userToken, tokenErr = tokens.GenerateUserJWT(1, "user@example.com", "USER", time.Hour, s.jwtSecret)
	s.Require().NoError(tokenErr)
	s.adminToken, tokenErr = tokens.GenerateUserJWT(2, "admin@example.com", tokens.RoleAdmin, time.Hour, s.jwtSecret)
	s.Require().NoError(tokenErr)

	s.router = New(RouterArgs{
		Logger:       logger.New(io.Discard),
		OrderService: s.mockOrderService,
		JWTSecretKey: s.jwtSecret,
	})
}

func (s *OrdersHandlerTestSuite) TestCreate() {
	order := &domain.Order{
		ID:         55,
		UserID:     1,
		Email:      "user@example.com",
		Status:     domain.OrderStatusCreated,
		TotalPrice: decimal.NewFromInt(120),
	}

	s.mockOrderService.EXPECT().
		Create(gomock.Any(), int64(1), "user@example.com", s.userToken).
		Return(order, nil).Times(1)
	s.mockOrderService.EXPECT().
		Create(gomock.Any(), int64(1), "user@example.com", s.userToken).
		Return(nil, domain.ErrEmptyCart).Times(1)

	cases := []struct {
		name       string
		jwtToken   string
		wantStatus int
	}{
		{
			name:       "all ok",
			jwtToken:   s.userToken,
			wantStatus: http.StatusCreated,
		}, {
			name:       "empty cart",
			jwtToken:   s.userToken,
			wantStatus: http.StatusBadRequest,
		}, {
			name:       "not authorized",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, t := range cases {
		s.Run(t.name, func() {
			opts := []func(*testutils.RequestOptions){}
			if t.jwtToken != "" {
				opts = append(opts, testutils.WithBearerToken(t.jwtToken))
			}
			resp, err := testutils.MakeRequest(testutils.RequestArgs{
				Router: s.router,
				Method: http.MethodPost,
				URL:    RouteGroup + OrdersRoute,
			}, opts...)
			s.Require().NoError(err)
			defer resp.Body.Close() //nolint:errcheck

			s.Equal(t.wantStatus, resp.StatusCode)
		})
	}
}

func (s *OrdersHandlerTestSuite) TestPay() {
	paid := &domain.Order{ID: 55, UserID: 1, Email: "user@example.com", Status: domain.OrderStatusPaid}

	s.mockOrderService.EXPECT().
		Pay(gomock.Any(), int64(55), "user@example.com", s.userToken).
		Return(paid, nil).Times(1)
	s.mockOrderService.EXPECT().
		Pay(gomock.Any(), int64(56), "user@example.com", s.userToken).
		Return(nil, domain.NewPaymentFailedError(56, domain.ErrInsufficientFunds)).Times(1)
	s.mockOrderService.EXPECT().
		Pay(gomock.Any(), int64(57), "user@example.com", s.userToken).
		Return(nil, domain.ErrInvalidOrderStatus).Times(1)
	s.mockOrderService.EXPECT().
		Pay(gomock.Any(), int64(58), "user@example.com", s.userToken).
		Return(nil, domain.ErrOrderNotFound).Times(1)

	cases := []struct {
		name       string
		orderID    string
		wantStatus int
	}{
		{name: "all ok", orderID: "55", wantStatus: http.StatusOK},
		{name: "insufficient funds", orderID: "56", wantStatus: http.StatusPaymentRequired},
		{name: "already paid", orderID: "57", wantStatus: http.StatusConflict},
		{name: "foreign or missing order", orderID: "58", wantStatus: http.StatusNotFound},
		{name: "invalid id", orderID: "abc", wantStatus: http.StatusBadRequest},
	}

	for _, t := range cases {
		s.Run(t.name, func() {
			resp, err := testutils.MakeRequest(testutils.RequestArgs{
				Router: s.router,
				Method: http.MethodPost,
				URL:    fmt.Sprintf("%s/orders/%s/pay", RouteGroup, t.orderID),
			}, testutils.WithBearerToken(s.userToken))
			s.Require().NoError(err)
			defer resp.Body.Close() //nolint:errcheck

			s.Equal(t.wantStatus, resp.StatusCode)
		})
	}
}

func (s *OrdersHandlerTestSuite) TestCancel() {
	cancelled := &domain.Order{ID: 55, Status: domain.OrderStatusCancelled}

	s.mockOrderService.EXPECT().
		Cancel(gomock.Any(), int64(55), "admin@example.com", "out of stock", s.adminToken).
		Return(cancelled, nil).Times(1)

	payload := []byte(`{"reason":"out of stock"}`)

	cases := []struct {
		name       string
		jwtToken   string
		payload    []byte
		wantStatus int
	}{
		{
			name:       "admin cancels",
			jwtToken:   s.adminToken,
			payload:    payload,
			wantStatus: http.StatusOK,
		}, {
			name:       "reason is required",
			jwtToken:   s.adminToken,
			payload:    []byte(`{}`),
			wantStatus: http.StatusBadRequest,
		}, {
			name:       "forbidden for regular user",
			jwtToken:   s.userToken,
			payload:    payload,
			wantStatus: http.StatusForbidden,
		},
	}

	for _, t := range cases {
		s.Run(t.name, func() {
			resp, err := testutils.MakeRequest(testutils.RequestArgs{
				Router: s.router,
				Method: http.MethodPost,
				URL:    RouteGroup + "/orders/55/cancel",
				Body:   bytes.NewReader(t.payload),
			}, testutils.WithBearerToken(t.jwtToken), testutils.WithHeader("Content-Type", "application/json"))
			s.Require().NoError(err)
			defer resp.Body.Close() //nolint:errcheck

			s.Equal(t.wantStatus, resp.StatusCode)
		})
	}
}

func (s *OrdersHandlerTestSuite) TestShow() {
	order := &domain.Order{ID: 55, UserID: 1, Email: "user@example.com", Status: domain.OrderStatusCreated}

	s.mockOrderService.EXPECT().
		GetByID(gomock.Any(), int64(55), "user@example.com").
		Return(order, nil).Times(1)
	s.mockOrderService.EXPECT().
		GetByID(gomock.Any(), int64(77), "user@example.com").
		Return(nil, domain.ErrOrderNotFound).Times(1)

	cases := []struct {
		name       string
		orderID    string
		wantStatus int
	}{
		{name: "own order", orderID: "55", wantStatus: http.StatusOK},
		{name: "foreign order hidden", orderID: "77", wantStatus: http.StatusNotFound},
	}

	for _, t := range cases {
		s.Run(t.name, func() {
			resp, err := testutils.MakeRequest(testutils.RequestArgs{
				Router: s.router,
				Method: http.MethodGet,
				URL:    fmt.Sprintf("%s/orders/%s", RouteGroup, t.orderID),
			}, testutils.WithBearerToken(s.userToken))
			s.Require().NoError(err)
			defer resp.Body.Close() //nolint:errcheck

			s.Equal(t.wantStatus, resp.StatusCode)
		})
	}
}

func (s *OrdersHandlerTestSuite) TestShow_ItemPayload() {
	link := "https://dl/ebook"
	order := &domain.Order{
		ID:         55,
		UserID:     1,
		Email:      "user@example.com",
		Status:     domain.OrderStatusPaid,
		TotalPrice: decimal.NewFromInt(120),
		Items: []domain.OrderItem{
			{
				ID:           1,
				OrderID:      55,
				ProductID:    10,
				ProductName:  "ebook",
				ProductPrice: decimal.NewFromInt(60),
				Category:     "books",
				Quantity:     2,
				DownloadLink: &link,
			},
		},
	}

	s.mockOrderService.EXPECT().
		GetByID(gomock.Any(), int64(55), "user@example.com").
		Return(order, nil)

	resp, err := testutils.MakeRequest(testutils.RequestArgs{
		Router: s.router,
		Method: http.MethodGet,
		URL:    fmt.Sprintf("%s/orders/55", RouteGroup),
	}, testutils.WithBearerToken(s.userToken))
	s.Require().NoError(err)
	defer resp.Body.Close() //nolint:errcheck

	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var got OrderResponse
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&got))
	s.Require().Len(got.Items, 1)
	s.Equal(int64(10), got.Items[0].ProductID)
	s.Equal("books", got.Items[0].Category)
	s.True(got.Items[0].Price.Equal(decimal.NewFromInt(60)))
	s.Require().NotNil(got.Items[0].DownloadLink)
	s.Equal(link, *got.Items[0].DownloadLink)
}

func (s *OrdersHandlerTestSuite) TestMyAndAll() {
	s.mockOrderService.EXPECT().
		GetByEmail(gomock.Any(), "user@example.com").
		Return([]domain.Order{{ID: 55}}, nil).Times(1)
	s.mockOrderService.EXPECT().
		GetAll(gomock.Any()).
		Return([]domain.Order{{ID: 55}, {ID: 56}}, nil).Times(1)

	cases := []struct {
		name       string
		url        string
		jwtToken   string
		wantStatus int
	}{
		{name: "my orders", url: RouteGroup + MyOrdersRoute, jwtToken: s.userToken, wantStatus: http.StatusOK},
		{name: "all orders admin", url: RouteGroup + AllOrdersRoute, jwtToken: s.adminToken, wantStatus: http.StatusOK},
		{name: "all orders forbidden", url: RouteGroup + AllOrdersRoute, jwtToken: s.userToken, wantStatus: http.StatusForbidden},
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
