package main

import (
	"context"
	"errors"
	"os"

	"github.com/spavnit/marketpay/internal/app"
	"github.com/spavnit/marketpay/internal/config"
	"github.com/spavnit/marketpay/internal/logger"
)

func main() {
	conf := config.MustLoadOrdersConfig()
	l := logger.New(os.Stdout)

	if err := app.NewOrders(conf, l).Run(); err != nil {
		if errors.Is(err, context.Canceled) {
			l.Info("graceful shutdown")
			os.Exit(0)
		}
		panic(err)
	}
}
