package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SeunOnTech/sol-stake-backend/common/fault"
)

// respondError maps a fault kind to a status. Unknown faults are logged and hidden
// behind a generic message.
func respondError(c *gin.Context, err error, fallback string) {
	ctx := c.Request.Context()
	_ = c.Error(err)

	switch fault.KindOf(err) {
	case fault.KindNotAuthenticated:
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
	case fault.KindNotAuthorized:
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized"})
	case fault.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case fault.KindValidation:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case fault.KindPersistenceUnavailable, fault.KindCacheUnavailable, fault.KindRateLimitStoreUnavailable:
		slog.ErrorContext(ctx, fallback, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service unavailable"})
	default:
		slog.ErrorContext(ctx, fallback, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
