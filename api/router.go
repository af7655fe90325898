package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	billetera "github.com/billetera/billetera-api"
	"github.com/billetera/billetera-api/service"
)

// ServiceName is reported by GET /.
const ServiceName = "billetera-api"

// Services are the application services the router exposes.
type Services struct {
	Auth         *service.AuthService
	Profiles     *service.ProfileService
	CashWallets  *service.CashWalletService
	BankAccounts *service.BankAccountService
	CreditCards  *service.CreditCardService
	Categories   *service.CategoryService
	Transactions *service.TransactionService
}

// Dependencies is everything NewRouter wires together.
type Dependencies struct {
	Services

	// Middleware authenticates the protected routes.
	Middleware *billetera.Middleware
	Logger     billetera.Logger
	Metrics    billetera.Metrics
	// MetricsHandler serves GET /metrics when set.
	MetricsHandler http.Handler

	Prefix  string
	Version string
}

// Errors returned by NewRouter.
var (
	ErrMiddlewareNil = errors.New("authentication middleware is required")
	ErrServiceNil    = errors.New("all services are required")
)

// NewRouter builds the HTTP API.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if deps.Middleware == nil {
		return nil, ErrMiddlewareNil
	}
	s := deps.Services
	if s.Auth == nil || s.Profiles == nil || s.CashWallets == nil || s.BankAccounts == nil ||
		s.CreditCards == nil || s.Categories == nil || s.Transactions == nil {
		return nil, ErrServiceNil
	}
	if deps.Logger == nil {
		deps.Logger = billetera.NewZapLogger(zap.NewNop())
	}
	if deps.Metrics == nil {
		deps.Metrics = billetera.NoopMetrics{}
	}

	RegisterValidations()

	r := gin.New()
	r.Use(requestContext(deps.Logger, deps.Metrics), recovery(deps.Logger))
	r.NoRoute(noRoute)

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"service": ServiceName, "version": deps.Version})
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if deps.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(deps.MetricsHandler))
	}

	v1 := r.Group(deps.Prefix)
	protected := deps.Middleware.Gin()

	auth := authHandler{auth: s.Auth}
	authGroup := v1.Group("/auth")
	authGroup.POST("/sign-up", auth.signUp)
	authGroup.POST("/sign-in", auth.signIn)
	authGroup.POST("/refresh", auth.refresh)
	authGroup.POST("/reset-password", auth.resetPassword)
	authGroup.POST("/sign-out", protected, auth.signOut)
	authGroup.GET("/me", protected, auth.me)

	private := v1.Group("", protected)

	profiles := profileHandler{profiles: s.Profiles}
	private.GET("/profile", profiles.get)
	private.PATCH("/profile", profiles.update)

	crud[service.CashWallet, service.CashWalletCreate, service.CashWalletUpdate]{
		list:   s.CashWallets.List,
		create: s.CashWallets.Create,
		update: s.CashWallets.Update,
		remove: s.CashWallets.Delete,
	}.register(private.Group("/cash-wallets"))

	crud[service.BankAccount, service.BankAccountCreate, service.BankAccountUpdate]{
		list:   s.BankAccounts.List,
		create: s.BankAccounts.Create,
		update: s.BankAccounts.Update,
		remove: s.BankAccounts.Delete,
	}.register(private.Group("/bank-accounts"))

	crud[service.CreditCard, service.CreditCardCreate, service.CreditCardUpdate]{
		list:   s.CreditCards.List,
		create: s.CreditCards.Create,
		update: s.CreditCards.Update,
		remove: s.CreditCards.Delete,
	}.register(private.Group("/credit-cards"))

	crud[service.Category, service.CategoryCreate, struct{}]{
		list:   s.Categories.List,
		create: s.Categories.Create,
		remove: s.Categories.Delete,
	}.register(private.Group("/categories"))

	transactions := private.Group("/transactions")
	transactions.GET("", listTransactions(s.Transactions))
	crud[service.Transaction, service.TransactionCreate, service.TransactionUpdate]{
		create: s.Transactions.Create,
		update: s.Transactions.Update,
		remove: s.Transactions.Delete,
	}.register(transactions)

	return r, nil
}
