// Package ledgerclient HTTP клиент леджера: синхронные списание и возврат средств.
package ledgerclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/spavnit/marketpay/internal/domain"
)

const (
	RouteDebit  = "/api/balance/debit"
	RouteRefund = "/api/balance/%d/refund"
)

type debitRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	OrderID     int64           `json:"orderId"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
	}
}

// Debit списывает amount с баланса пользователя, которому принадлежит token.
// orderID служит корреляционным идентификатором: леджер отказывает повторному
// списанию с тем же orderID ошибкой domain.ErrDuplicateDebit.
func (c *Client) Debit(
	ctx context.Context,
	token string,
	amount decimal.Decimal,
	orderID int64,
	description string,
) error {
	return c.post(ctx, c.baseURL+RouteDebit, token, debitRequest{
		Amount:      amount,
		Description: description,
		OrderID:     orderID,
	})
}

// Refund возвращает amount на баланс пользователя userID. Требует админских прав
// у владельца token.
func (c *Client) Refund(
	ctx context.Context,
	token string,
	userID int64,
	amount decimal.Decimal,
	orderID int64,
	description string,
) error {
	url := c.baseURL + fmt.Sprintf(RouteRefund, userID)
	return c.post(ctx, url, token, debitRequest{
		Amount:      amount,
		Description: description,
		OrderID:     orderID,
	})
}

//nolint:nonamedreturns
func (c *Client) post(ctx context.Context, url, token string, payload any) (err error) {
	body, marshalErr := json.Marshal(payload)
	if marshalErr != nil {
		return errors.Wrap(marshalErr, "marshal request")
	}

	req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if reqErr != nil {
		return errors.Wrap(reqErr, "create request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, doErr := c.httpClient.Do(req)
	if doErr != nil {
		return errors.Wrap(doErr, "do request")
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			err = errors.Wrap(closeErr, "close response body")
		}
	}()

	return convertStatus(resp.StatusCode)
}

// convertStatus переводит статусы ответа леджера в доменные ошибки.
func convertStatus(code int) error {
	switch code {
	case http.StatusOK:
		return nil
	case http.StatusPaymentRequired:
		return domain.ErrInsufficientFunds
	case http.StatusConflict:
		return domain.ErrDuplicateDebit
	case http.StatusNotFound:
		return domain.ErrBalanceNotFound
	default:
		return errors.Errorf("unexpected status code %d", code)
	}
}
