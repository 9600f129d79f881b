package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/staturevogue/storefront/internal/service"
)

// HandleCheckout handles POST /v1/orders/checkout
func HandleCheckout(svc *service.Services, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.CheckoutRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}

		result, err := svc.Checkout.Checkout(c.Request.Context(), req)
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusCreated, result)
	}
}

// HandleVerifyPayment handles POST /v1/payments/verify
func HandleVerifyPayment(svc *service.Services, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.VerifyPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}

		order, err := svc.Payment.Verify(c.Request.Context(), req)
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}
