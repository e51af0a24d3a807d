package service

import (
	"errors"

	"github.com/spavnit/marketpay/internal/domain"
)

func defaultIfBlank(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}

// convertNotFound подменяет репозиторную ErrRecordNotFound на бизнес-ошибку target,
// остальные ошибки возвращает как есть.
func convertNotFound(err error, target error) error {
	if errors.Is(err, domain.ErrRecordNotFound) {
		return target
	}
	return err
}
