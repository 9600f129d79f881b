package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/staturevogue/storefront/internal/api/handlers"
	"github.com/staturevogue/storefront/internal/api/middleware"
	"github.com/staturevogue/storefront/internal/config"
	"github.com/staturevogue/storefront/internal/repository"
	"github.com/staturevogue/storefront/internal/service"
)

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, repos *repository.Repositories, svc *service.Services, logger *zap.Logger) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(logger))
	router.MaxMultipartMemory = 8 << 20

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes
	v1 := router.Group("/v1")
	{
		store := v1.Group("/store")
		{
			store.GET("/products", handlers.HandleListProducts(svc, logger))
			store.GET("/products/:id", handlers.HandleGetProduct(svc, logger))
			store.GET("/products/:id/reviews", handlers.HandleGetReviews(svc, logger))
			store.GET("/config", handlers.HandleGetConfig(svc, logger))
			store.POST("/validate-coupon", handlers.HandleValidateCoupon(svc, logger))
		}

		v1.POST("/orders/checkout", handlers.HandleCheckout(svc, logger))
		v1.POST("/payments/verify", handlers.HandleVerifyPayment(svc, logger))
		v1.GET("/orders", handlers.HandleListOrders(svc, logger))
		v1.GET("/orders/:id", handlers.HandleGetOrder(svc, logger))
		v1.POST("/orders/:id/cancel", handlers.HandleCancelOrder(svc, logger))
		v1.POST("/order-items/:id/actions", handlers.HandleItemAction(svc, cfg.Evidence.MaxBytes, logger))

		// Admin routes
		adminRoutes := v1.Group("/admin")
		adminRoutes.Use(middleware.AdminAuth(repos, logger))
		{
			adminRoutes.PATCH("/orders/:id/status", handlers.HandleUpdateOrderStatus(svc, logger))
			adminRoutes.POST("/order-items/:id/decision", handlers.HandleDecideItemAction(svc, logger))
			adminRoutes.POST("/order-items/:id/refund", handlers.HandleRefundItem(svc, logger))
		}
	}

	return router
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		status := c.Writer.Status()
		logger.Info("HTTP request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
