package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/staturevogue/storefront/internal/service"
)

// HandleListProducts handles GET /v1/store/products
func HandleListProducts(svc *service.Services, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

		category := c.Query("category")

		products, err := svc.Catalog.ListProducts(c.Request.Context(), category, limit, offset)
		if err != nil {
			writeError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"products": products,
			"category": category,
			"limit":    limit,
			"offset":   offset,
		})
	}
}

// HandleGetProduct handles GET /v1/store/products/:id
func HandleGetProduct(svc *service.Services, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		product, err := svc.Catalog.GetProduct(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, product)
	}
}

// HandleGetReviews handles GET /v1/store/products/:id/reviews
func HandleGetReviews(svc *service.Services, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		summary, err := svc.Catalog.ReviewSummary(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

// HandleGetConfig handles GET /v1/store/config
func HandleGetConfig(svc *service.Services, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		policy, err := svc.Catalog.ShippingPolicy(c.Request.Context())
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, policy)
	}
}

// ValidateCouponRequest represents validate coupon request
type ValidateCouponRequest struct {
	Code       string          `json:"code" binding:"required"`
	OrderTotal decimal.Decimal `json:"order_total"`
}

// HandleValidateCoupon handles POST /v1/store/validate-coupon
func HandleValidateCoupon(svc *service.Services, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ValidateCouponRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}

		result, err := svc.Coupon.Validate(c.Request.Context(), req.Code, req.OrderTotal)
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}
