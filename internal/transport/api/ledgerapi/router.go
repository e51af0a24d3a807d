package ledgerapi

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
	RouteGroup            = "/api"
	BalanceRoute          = "/balance"
	DebitRoute            = "/balance/debit"
	TransactionsRoute     = "/balance/transactions"
	RefundRoute           = "/balance/:userId/refund"
	AdjustRoute           = "/balance/:userId/adjust"
	UserBalanceRoute      = "/balance/:userId"
	UserTransactionsRoute = "/balance/:userId/transactions"
	AllBalancesRoute      = "/balance/admin/all"
	AllTransactionsRoute  = "/balance/admin/transactions"
)

type RouterArgs struct {
	Logger        *logrus.Logger
	LedgerService LedgerServicer
	JWTSecretKey  []byte
}

func New(args RouterArgs) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if args.Logger != nil {
		r.Use(middlewares.Logger(args.Logger))
	}
	r.Use(middlewares.Errors())

	balanceHandler := NewBalanceHandler(args.LedgerService)

	api := r.Group(RouteGroup)
	api.Use(middlewares.AuthRequired(args.JWTSecretKey))

	api.GET(BalanceRoute, balanceHandler.Show)
	api.GET(TransactionsRoute, balanceHandler.Transactions)
	api.POST(DebitRoute, balanceHandler.Debit)

	admin := api.Group("")
	admin.Use(middlewares.AdminRequired())
	admin.POST(RefundRoute, balanceHandler.Refund)
	admin.POST(AdjustRoute, balanceHandler.Adjust)
	admin.GET(UserBalanceRoute, balanceHandler.ShowUser)
	admin.GET(UserTransactionsRoute, balanceHandler.UserTransactions)
	admin.GET(AllBalancesRoute, balanceHandler.All)
	admin.GET(AllTransactionsRoute, balanceHandler.AllTransactions)

	return r
}
