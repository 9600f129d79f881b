package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/staturevogue/storefront/internal/domain"
	"github.com/staturevogue/storefront/internal/service"
	"github.com/staturevogue/storefront/pkg/errors"
)

// multipartOverhead is allowed on top of the evidence size limit for the
// other form fields and part headers
const multipartOverhead = 1 << 20

// HandleItemAction handles POST /v1/order-items/:id/actions. The body is a
// multipart form with action_type, reason and an evidence video.
func HandleItemAction(svc *service.Services, maxEvidenceBytes int64, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		itemID, ok := paramUUID(c, "id")
		if !ok {
			return
		}

		if c.ContentType() != "multipart/form-data" {
			writeError(c, logger, &errors.ValidationError{Field: "evidence", Message: "request must be multipart/form-data"})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxEvidenceBytes+multipartOverhead)

		req := service.ItemActionRequest{
			Action: domain.ActionType(c.PostForm("action_type")),
			Reason: domain.ReasonCode(c.PostForm("reason")),
		}

		header, err := c.FormFile("evidence")
		if err == nil {
			file, err := header.Open()
			if err != nil {
				writeError(c, logger, err)
				return
			}
			defer file.Close()

			req.EvidenceName = header.Filename
			req.EvidenceSize = header.Size
			req.Evidence = file
		} else if err != http.ErrMissingFile {
			writeError(c, logger, &errors.ValidationError{Field: "evidence", Message: "evidence upload is too large or malformed"})
			return
		}

		item, err := svc.Order.RequestItemAction(c.Request.Context(), itemID, req)
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, item)
	}
}
