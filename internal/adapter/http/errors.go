package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aq2208/storefront-api/internal/entity"
	"github.com/aq2208/storefront-api/internal/logging"
)

type errorBody struct {
	Code     entity.Code       `json:"code"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func statusOf(code entity.Code) int {
	switch code {
	case entity.CodeNotFound, entity.CodeItemNotFound:
		return http.StatusNotFound
	case entity.CodeInvalidArgument, entity.CodeInvalidCurrencyPair:
		return http.StatusBadRequest
	case entity.CodeItemNotPurchasable, entity.CodeOutOfStock, entity.CodeInsufficientStock,
		entity.CodeEmptyCart, entity.CodeInsufficientInventory:
		return http.StatusUnprocessableEntity
	case entity.CodeDuplicateRequest:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {"ok": false, "error": {...}}. Errors without a
// domain code are logged and hidden behind a generic message.
func writeError(c *gin.Context, err error) {
	var de *entity.Error
	if !errors.As(err, &de) {
		logging.From(c).Error("request failed", "err", err)
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": errorBody{
			Code:    entity.CodeUnknown,
			Message: "Internal error.",
		}})
		return
	}
	status := statusOf(de.Code)
	if status >= http.StatusInternalServerError {
		logging.From(c).Error("request failed", "code", de.Code, "err", err)
	}
	c.JSON(status, gin.H{"ok": false, "error": errorBody{
		Code:     de.Code,
		Message:  de.Message,
		Metadata: de.Metadata,
	}})
}

func badRequest(c *gin.Context, msg string) {
	writeError(c, entity.InvalidArgument(msg))
}
