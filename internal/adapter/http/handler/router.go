package handler

import (
	"storefront/internal/adapter/http/middleware"
	redisStore "storefront/internal/adapter/storage/redis"
	"storefront/internal/core/domain"
	"storefront/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	maxJSONBody    = 1 << 20  // 1 MB
	maxListingBody = 25 << 20 // 25 MB, room for five images
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	OrderSvc       ports.OrderService
	LifecycleSvc   ports.LifecycleService
	ListingSvc     ports.ListingService
	WalletSvc      ports.WalletService
	Authorizer     ports.Authorizer
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	AuditSvc       ports.AuditService // nil = audit logging disabled
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))

	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	rules := middleware.DefaultRateLimitRules()
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}
	authz := func(capability string) gin.HandlerFunc {
		return middleware.Authorize(deps.Authorizer, capability)
	}
	jsonBody := middleware.MaxBodySize(maxJSONBody)

	v1 := r.Group("/api/v1")

	orderHandler := NewOrderHandler(deps.OrderSvc, deps.LifecycleSvc)
	orders := v1.Group("/orders")
	{
		orders.POST("", authz(domain.CapOrderCreate), rl("orders_create"), jsonBody, orderHandler.PlaceOrder)
		orders.GET("", authz(domain.CapOrderRead), rl("orders_read"), orderHandler.ListOrders)
		orders.GET("/:id", authz(domain.CapOrderRead), rl("orders_read"), orderHandler.GetOrder)
		orders.PATCH("/:id/status", authz(domain.CapOrderUpdate), rl("orders_status"), jsonBody, orderHandler.UpdateStatus)
	}

	productHandler := NewProductHandler(deps.ListingSvc)
	v1.POST("/products", authz(domain.CapAddProduct), rl("products_create"),
		middleware.MaxBodySize(maxListingBody), productHandler.CreateListing)

	walletHandler := NewWalletHandler(deps.WalletSvc)
	wallet := v1.Group("/wallet")
	{
		wallet.GET("", authz(domain.CapWalletRead), rl("wallet_read"), walletHandler.GetWallet)
		wallet.POST("/topup", authz(domain.CapWalletTopup), rl("wallet_topup"), jsonBody, walletHandler.Topup)
	}

	return r
}
