package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/staturevogue/storefront/internal/api/middleware"
	"github.com/staturevogue/storefront/internal/domain"
	"github.com/staturevogue/storefront/internal/service"
)

// UpdateOrderStatusRequest represents update order status request
type UpdateOrderStatusRequest struct {
	Status domain.OrderStatus `json:"order_status" binding:"required"`
}

// DecisionRequest represents an admin verdict on an item action
type DecisionRequest struct {
	Decision domain.Decision `json:"decision" binding:"required"`
	Comment  string          `json:"comment"`
}

// HandleUpdateOrderStatus handles PATCH /v1/admin/orders/:id/status
func HandleUpdateOrderStatus(svc *service.Services, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		admin, ok := middleware.GetAdminFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "code": "unauthorized"})
			return
		}

		orderID, ok := paramUUID(c, "id")
		if !ok {
			return
		}

		var req UpdateOrderStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}

		order, err := svc.Order.UpdateStatus(c.Request.Context(), orderID, req.Status)
		if err != nil {
			writeError(c, logger, err)
			return
		}

		logger.Info("Order status updated",
			zap.String("admin", admin.Name),
			zap.String("order_id", orderID.String()),
			zap.String("status", string(order.Status)),
		)
		c.JSON(http.StatusOK, order)
	}
}

// HandleDecideItemAction handles POST /v1/admin/order-items/:id/decision
func HandleDecideItemAction(svc *service.Services, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		admin, ok := middleware.GetAdminFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "code": "unauthorized"})
			return
		}

		itemID, ok := paramUUID(c, "id")
		if !ok {
			return
		}

		var req DecisionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}

		item, err := svc.Order.DecideItemAction(c.Request.Context(), itemID, req.Decision, req.Comment)
		if err != nil {
			writeError(c, logger, err)
			return
		}

		logger.Info("Item action decided",
			zap.String("admin", admin.Name),
			zap.String("item_id", itemID.String()),
			zap.String("status", string(item.Status)),
		)
		c.JSON(http.StatusOK, item)
	}
}

// HandleRefundItem handles POST /v1/admin/order-items/:id/refund
func HandleRefundItem(svc *service.Services, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		admin, ok := middleware.GetAdminFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "code": "unauthorized"})
			return
		}

		itemID, ok := paramUUID(c, "id")
		if !ok {
			return
		}

		var req service.RefundRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}

		item, err := svc.Order.MarkRefunded(c.Request.Context(), itemID, req)
		if err != nil {
			writeError(c, logger, err)
			return
		}

		logger.Info("Item refunded",
			zap.String("admin", admin.Name),
			zap.String("item_id", itemID.String()),
		)
		c.JSON(http.StatusOK, item)
	}
}
