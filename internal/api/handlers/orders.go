package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/staturevogue/storefront/internal/service"
)

// HandleListOrders handles GET /v1/orders?buyer_email=
func HandleListOrders(svc *service.Services, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

		orders, err := svc.Order.ListForBuyer(c.Request.Context(), c.Query("buyer_email"), limit, offset)
		if err != nil {
			writeError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"orders": orders,
			"limit":  limit,
			"offset": offset,
		})
	}
}

// HandleGetOrder handles GET /v1/orders/:id
func HandleGetOrder(svc *service.Services, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, ok := paramUUID(c, "id")
		if !ok {
			return
		}

		order, err := svc.Order.Get(c.Request.Context(), orderID)
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

// HandleCancelOrder handles POST /v1/orders/:id/cancel
func HandleCancelOrder(svc *service.Services, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, ok := paramUUID(c, "id")
		if !ok {
			return
		}

		order, err := svc.Order.Cancel(c.Request.Context(), orderID)
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}
