// Package catalogclient HTTP клиент каталога: получение ссылки на скачивание товара.
package catalogclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pkg/errors"
)

const RouteDownloadLink = "/api/products/%d/download-link"

type productLinkResponse struct {
	ProductID    int64  `json:"productId"`
	DownloadLink string `json:"downloadLink"`
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

// DownloadLink возвращает ссылку на скачивание товара.
//
//nolint:nonamedreturns
func (c *Client) DownloadLink(ctx context.Context, productID int64) (link string, err error) {
	url := c.baseURL + fmt.Sprintf(RouteDownloadLink, productID)

	req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if reqErr != nil {
		return "", errors.Wrap(reqErr, "create request")
	}

	resp, doErr := c.httpClient.Do(req)
	if doErr != nil {
		return "", errors.Wrap(doErr, "do request")
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			err = errors.Wrap(closeErr, "close response body")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("unexpected status code %d", resp.StatusCode)
	}

	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return "", errors.Wrap(readErr, "read response")
	}

	var response productLinkResponse
	if jsonErr := json.Unmarshal(body, &response); jsonErr != nil {
		return "", errors.Wrap(jsonErr, "parse response")
	}
	if response.DownloadLink == "" {
		return "", errors.New("empty download link in response")
	}

	return response.DownloadLink, nil
}
