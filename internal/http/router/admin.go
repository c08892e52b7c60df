package router

import (
	"github.com/gin-gonic/gin"

	"github.com/SeunOnTech/sol-stake-backend/internal/http/handler"
)

func AdminRouter(rg *gin.RouterGroup, h *handler.AdminHandler) {
	rg.POST("/cache/clear", h.ClearCache)
	rg.POST("/cache/invalidate-validators", h.InvalidateValidatorCache)
	rg.GET("/rate-limits", h.RateLimits)
	rg.DELETE("/rate-limits/:key", h.ResetRateLimit)
	rg.POST("/jobs", h.EnqueueJob)
}
