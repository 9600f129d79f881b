package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/staturevogue/storefront/pkg/errors"
)

// writeError renders err with the status its type maps to. Only unexpected
// errors are logged.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	status, body := errors.Encode(err)
	if status == http.StatusInternalServerError {
		logger.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	c.JSON(status, body)
}

// bindError reports a malformed request body
func bindError(c *gin.Context, err error) {
	_, body := errors.Encode(&errors.ValidationError{Message: "invalid request body: " + err.Error()})
	c.JSON(http.StatusUnprocessableEntity, body)
}

func paramUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		_, body := errors.Encode(&errors.ValidationError{Field: name, Message: "invalid " + name})
		c.JSON(http.StatusBadRequest, body)
		return uuid.Nil, false
	}
	return id, true
}
