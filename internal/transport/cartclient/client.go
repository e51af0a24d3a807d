// Package cartclient HTTP клиент cart-сервиса: чтение и очистка снимка корзины.
package cartclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const RouteCart = "/api/cart"
const RouteCartClear = "/api/cart/clear"

type CartItem struct {
	ID              int64           `json:"id"`
	ProductID       int64           `json:"productId"`
	ProductName     string          `json:"productName"`
	ProductPrice    decimal.Decimal `json:"productPrice"`
	ProductCategory string          `json:"productCategory"`
	Quantity        int32           `json:"quantity"`
}

type CartResponse struct {
	ID         int64           `json:"id"`
	UserID     int64           `json:"userId"`
	Email      string          `json:"email"`
	Items      []CartItem      `json:"items"`
	TotalItems int             `json:"totalItems"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
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

// Get возвращает текущий снимок корзины пользователя, которому принадлежит token.
//
//nolint:nonamedreturns
func (c *Client) Get(ctx context.Context, token string) (response *CartResponse, err error) {
	req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+RouteCart, nil)
	if reqErr != nil {
		return nil, errors.Wrap(reqErr, "create request")
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, doErr := c.httpClient.Do(req)
	if doErr != nil {
		return nil, errors.Wrap(doErr, "do request")
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			err = errors.Wrap(closeErr, "close response body")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("unexpected status code %d", resp.StatusCode)
	}

	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return nil, errors.Wrap(readErr, "read response")
	}

	if jsonErr := json.Unmarshal(body, &response); jsonErr != nil {
		return nil, errors.Wrap(jsonErr, "parse response")
	}

	return response, nil
}

// Clear очищает корзину пользователя. Вызывается после оплаты как best effort.
func (c *Client) Clear(ctx context.Context, token string) error {
	req, reqErr := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+RouteCartClear, nil)
	if reqErr != nil {
		return errors.Wrap(reqErr, "create request")
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, doErr := c.httpClient.Do(req)
	if doErr != nil {
		return errors.Wrap(doErr, "do request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return errors.Errorf("unexpected status code %d", resp.StatusCode)
	}
	return nil
}
