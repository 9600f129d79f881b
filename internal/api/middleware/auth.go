package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/staturevogue/storefront/internal/domain"
	"github.com/staturevogue/storefront/internal/repository"
	"github.com/staturevogue/storefront/pkg/errors"
)

const adminContextKey = "admin"

// AdminAuth authenticates admin routes with a bearer API key
func AdminAuth(repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := extractAPIKey(c.Request)
		if apiKey == "" {
			_, body := errors.Encode(&errors.ErrUnauthorized{Message: "missing API key"})
			c.AbortWithStatusJSON(http.StatusUnauthorized, body)
			return
		}

		admin, err := repos.Admin.GetByAPIKeyHash(c.Request.Context(), apiKey)
		if err != nil {
			if _, ok := err.(*errors.ErrUnauthorized); !ok {
				logger.Error("Failed to authenticate admin", zap.Error(err))
			}
			_, body := errors.Encode(&errors.ErrUnauthorized{Message: "invalid API key"})
			c.AbortWithStatusJSON(http.StatusUnauthorized, body)
			return
		}

		c.Set(adminContextKey, admin)
		c.Next()
	}
}

// GetAdminFromContext returns the admin AdminAuth attached to the request
func GetAdminFromContext(c *gin.Context) (*domain.Admin, bool) {
	v, ok := c.Get(adminContextKey)
	if !ok {
		return nil, false
	}
	admin, ok := v.(*domain.Admin)
	return admin, ok
}

func extractAPIKey(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if strings.HasPrefix(auth, "Bearer ") {
			return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
		}
		return ""
	}
	return strings.TrimSpace(r.Header.Get("X-API-Key"))
}
