package ledgerapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/spavnit/marketpay/internal/domain"
	"github.com/spavnit/marketpay/internal/service"
	"github.com/spavnit/marketpay/internal/transport/api/middlewares"
)

type BalanceHandler struct {
	ledgerService LedgerServicer
}

func NewBalanceHandler(ledgerService LedgerServicer) *BalanceHandler {
	return &BalanceHandler{ledgerService: ledgerService}
}

type debitRequest struct {
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	OrderID     *int64          `json:"orderId"`
	Description string          `json:"description"`
}

type refundRequest struct {
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	OrderID     *int64          `json:"orderId"`
	Description string          `json:"description"`
}

type adjustRequest struct {
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Description string          `json:"description" binding:"required"`
}

// Show отдает баланс текущего юзера.
func (h *BalanceHandler) Show(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultServiceTimeout)
	defer cancel()

	userID := c.GetInt64(middlewares.CurrentUserIDKey)
	h.renderBalance(ctx, c, userID)
}

// ShowUser отдает баланс произвольного юзера. Только для администраторов.
func (h *BalanceHandler) ShowUser(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultServiceTimeout)
	defer cancel()

	userID, ok := userIDParam(c)
	if !ok {
		return
	}
	h.renderBalance(ctx, c, userID)
}

func (h *BalanceHandler) renderBalance(ctx context.Context, c *gin.Context, userID int64) {
	balance, err := h.ledgerService.GetBalance(ctx, userID)
	if err != nil {
		h.convertErr(c, err)
		return
	}
	c.JSON(http.StatusOK, newBalanceResponse(balance))
}

// Debit списывает средства с баланса текущего юзера. Суммы положительные;
// повторное списание с тем же orderId отклоняется со статусом 409.
func (h *BalanceHandler) Debit(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultServiceTimeout)
	defer cancel()

	var req debitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		_ = c.Error(err).SetType(gin.ErrorTypePrivate)
		return
	}
	if !req.Amount.IsPositive() {
		c.Status(http.StatusBadRequest)
		_ = c.Error(errors.New("amount must be positive")).SetType(gin.ErrorTypePublic)
		return
	}

	userID := c.GetInt64(middlewares.CurrentUserIDKey)

	balance, err := h.ledgerService.Debit(ctx, service.DebitArgs{
		UserID:      userID,
		Amount:      req.Amount,
		OrderID:     req.OrderID,
		Description: req.Description,
	})
	if err != nil {
		h.convertErr(c, err)
		return
	}

	c.JSON(http.StatusOK, newBalanceResponse(balance))
}

// Refund зачисляет средства юзеру. Только для администраторов.
func (h *BalanceHandler) Refund(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultServiceTimeout)
	defer cancel()

	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	var req refundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		_ = c.Error(err).SetType(gin.ErrorTypePrivate)
		return
	}
	if !req.Amount.IsPositive() {
		c.Status(http.StatusBadRequest)
		_ = c.Error(errors.New("amount must be positive")).SetType(gin.ErrorTypePublic)
		return
	}

	balance, err := h.ledgerService.Refund(ctx, service.DebitArgs{
		UserID:      userID,
		Amount:      req.Amount,
		OrderID:     req.OrderID,
		Description: req.Description,
	})
	if err != nil {
		h.convertErr(c, err)
		return
	}

	c.JSON(http.StatusOK, newBalanceResponse(balance))
}

// Adjust применяет знаковую корректировку баланса. Только для администраторов.
func (h *BalanceHandler) Adjust(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultServiceTimeout)
	defer cancel()

	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	var req adjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Status(http.StatusBadRequest)
		_ = c.Error(err).SetType(gin.ErrorTypePrivate)
		return
	}
	if req.Amount.IsZero() {
		c.Status(http.StatusBadRequest)
		_ = c.Error(errors.New("amount must be non-zero")).SetType(gin.ErrorTypePublic)
		return
	}

	balance, err := h.ledgerService.Adjust(ctx, userID, req.Amount, req.Description)
	if err != nil {
		h.convertErr(c, err)
		return
	}

	c.JSON(http.StatusOK, newBalanceResponse(balance))
}

// Transactions журнал операций текущего юзера.
func (h *BalanceHandler) Transactions(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultServiceTimeout)
	defer cancel()

	userID := c.GetInt64(middlewares.CurrentUserIDKey)
	h.renderTransactions(ctx, c, userID)
}

// UserTransactions журнал операций произвольного юзера. Только для администраторов.
func (h *BalanceHandler) UserTransactions(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultServiceTimeout)
	defer cancel()

	userID, ok := userIDParam(c)
	if !ok {
		return
	}
	h.renderTransactions(ctx, c, userID)
}

func (h *BalanceHandler) renderTransactions(ctx context.Context, c *gin.Context, userID int64) {
	transactions, err := h.ledgerService.GetTransactions(ctx, userID)
	if err != nil {
		h.convertErr(c, err)
		return
	}
	c.JSON(http.StatusOK, newTransactionListResponse(transactions))
}

// All все балансы. Только для администраторов.
func (h *BalanceHandler) All(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultServiceTimeout)
	defer cancel()

	balances, err := h.ledgerService.GetAllBalances(ctx)
	if err != nil {
		h.convertErr(c, err)
		return
	}
	c.JSON(http.StatusOK, newBalanceListResponse(balances))
}

// AllTransactions весь журнал операций. Только для администраторов.
func (h *BalanceHandler) AllTransactions(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), DefaultServiceTimeout)
	defer cancel()

	transactions, err := h.ledgerService.GetAllTransactions(ctx)
	if err != nil {
		h.convertErr(c, err)
		return
	}
	c.JSON(http.StatusOK, newTransactionListResponse(transactions))
}

func userIDParam(c *gin.Context) (int64, bool) {
	userID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil {
		c.Status(http.StatusBadRequest)
		_ = c.Error(err).SetType(gin.ErrorTypePrivate)
		return 0, false
	}
	return userID, true
}

func (h *BalanceHandler) convertErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrBalanceNotFound):
		c.Status(http.StatusNotFound)
		_ = c.Error(domain.ErrBalanceNotFound).SetType(gin.ErrorTypePublic)
	case errors.Is(err, domain.ErrInsufficientFunds):
		c.Status(http.StatusPaymentRequired)
		_ = c.Error(domain.ErrInsufficientFunds).SetType(gin.ErrorTypePublic)
	case errors.Is(err, domain.ErrDuplicateDebit):
		c.Status(http.StatusConflict)
		_ = c.Error(domain.ErrDuplicateDebit).SetType(gin.ErrorTypePublic)
	default:
		c.Status(http.StatusInternalServerError)
		_ = c.Error(err).SetType(gin.ErrorTypePrivate)
	}
}
