package orderapi

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/spavnit/marketpay/internal/transport/api/middlewares"
)

const (
	DefaultServiceTimeout = 15 * time.Second
)

const (
	RouteGroup       = "/api"
	OrdersRoute      = "/orders"
	OrderRoute       = "/orders/:id"
	OrderPayRoute    = "/orders/:id/pay"
	OrderCancelRoute = "/orders/:id/cancel"
	MyOrdersRoute    = "/orders/my"
	AllOrdersRoute   = "/orders/admin/all"
)

type RouterArgs struct {
	Logger       *logrus.Logger
	OrderService OrderServicer
	JWTSecretKey []byte
}

func New(args RouterArgs) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if args.Logger != nil {
		r.Use(middlewares.Logger(args.Logger))
	}
	r.Use(middlewares.Errors())

	ordersHandler := NewOrdersHandler(args.OrderService)

	api := r.Group(RouteGroup)
	api.Use(middlewares.AuthRequired(args.JWTSecretKey))

	api.POST(OrdersRoute, ordersHandler.Create)
	api.GET(MyOrdersRoute, ordersHandler.My)
	api.GET(OrderRoute, ordersHandler.Show)
	api.POST(OrderPayRoute, ordersHandler.Pay)

	admin := api.Group("")
	admin.Use(middlewares.AdminRequired())
	admin.POST(OrderCancelRoute, ordersHandler.Cancel)
	admin.GET(AllOrdersRoute, ordersHandler.All)

	return r
}
