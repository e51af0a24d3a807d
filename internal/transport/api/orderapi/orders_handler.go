package orderapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/spavnit/marketpay/internal/domain"
	"github.com/spavnit/marketpay/internal/transport/api/middlewares"
)

type OrdersHandler struct {
	orderService OrderServicer
}

func NewOrdersHandler(orderService OrderServicer) *OrdersHandler {
	return &OrdersHandler{orderService: orderService}
}

type cancelOrderRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// Create собирает заказ из текущей корзины юзера.
func (h *OrdersHandler) Create(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultServiceTimeout)
	defer cancel()

	userID := c.GetInt64(middlewares.CurrentUserIDKey)
	email := c.GetString(middlewares.CurrentEmailKey)
	token := c.GetString(middlewares.CurrentTokenKey)

	order, err := h.orderService.Create(ctx, userID, email, token)
	if err != nil {
		h.convertErr(c, err)
		return
	}

	c.JSON(http.StatusCreated, newOrderResponse(order))
}

// Pay запускает оплату заказа. Повторный вызов для уже списанного заказа
// безопасен, сага доводится до конца.
func (h *OrdersHandler) Pay(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultServiceTimeout)
	defer cancel()

	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	email := c.GetString(middlewares.CurrentEmailKey)
	token := c.GetString(middlewares.CurrentTokenKey)

	order, err := h.orderService.Pay(ctx, orderID, email, token)
	if err != nil {
		h.convertErr(c, err)
		return
	}

	c.JSON(http.StatusOK, newOrderResponse(order))
}

// Cancel отменяет заказ от имени администратора. Для оплаченного заказа сначала
// возвращаются средства.
func (h *OrdersHandler) Cancel(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultServiceTimeout)
	defer cancel()

	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	var req cancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		_ = c.Error(err).SetType(gin.ErrorTypePrivate)
		return
	}

	adminEmail := c.GetString(middlewares.CurrentEmailKey)
	token := c.GetString(middlewares.CurrentTokenKey)

	order, err := h.orderService.Cancel(ctx, orderID, adminEmail, req.Reason, token)
	if err != nil {
		h.convertErr(c, err)
		return
	}

	c.JSON(http.StatusOK, newOrderResponse(order))
}

// Show отдает заказ текущего юзера. Чужой заказ неотличим от несуществующего.
func (h *OrdersHandler) Show(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultServiceTimeout)
	defer cancel()

	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	email := c.GetString(middlewares.CurrentEmailKey)

	order, err := h.orderService.GetByID(ctx, orderID, email)
	if err != nil {
		h.convertErr(c, err)
		return
	}

	c.JSON(http.StatusOK, newOrderResponse(order))
}

// My отдает все заказы текущего юзера.
func (h *OrdersHandler) My(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultServiceTimeout)
	defer cancel()

	email := c.GetString(middlewares.CurrentEmailKey)

	orders, err := h.orderService.GetByEmail(ctx, email)
	if err != nil {
		h.convertErr(c, err)
		return
	}

	c.JSON(http.StatusOK, newOrderListResponse(orders))
}

// All отдает все заказы. Только для администраторов.
func (h *OrdersHandler) All(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultServiceTimeout)
	defer cancel()

	orders, err := h.orderService.GetAll(ctx)
	if err != nil {
		h.convertErr(c, err)
		return
	}

	c.JSON(http.StatusOK, newOrderListResponse(orders))
}

func orderIDParam(c *gin.Context) (int64, bool) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.Status(http.StatusBadRequest)
		_ = c.Error(err).SetType(gin.ErrorTypePrivate)
		return 0, false
	}
	return orderID, true
}

func (h *OrdersHandler) convertErr(c *gin.Context, err error) {
	var paymentErr *domain.PaymentFailedError

	switch {
	case errors.Is(err, domain.ErrEmptyCart):
		c.Status(http.StatusBadRequest)
		_ = c.Error(domain.ErrEmptyCart).SetType(gin.ErrorTypePublic)
	case errors.Is(err, domain.ErrOrderNotFound):
		c.Status(http.StatusNotFound)
		_ = c.Error(domain.ErrOrderNotFound).SetType(gin.ErrorTypePublic)
	case errors.Is(err, domain.ErrInvalidOrderStatus):
		c.Status(http.StatusConflict)
		_ = c.Error(domain.ErrInvalidOrderStatus).SetType(gin.ErrorTypePublic)
	case errors.As(err, &paymentErr):
		if errors.Is(paymentErr.Cause, domain.ErrInsufficientFunds) {
			c.Status(http.StatusPaymentRequired)
			_ = c.Error(domain.ErrInsufficientFunds).SetType(gin.ErrorTypePublic)
			return
		}
		c.Status(http.StatusBadGateway)
		_ = c.Error(err).SetType(gin.ErrorTypePrivate)
	default:
		c.Status(http.StatusInternalServerError)
		_ = c.Error(err).SetType(gin.ErrorTypePrivate)
	}
}
