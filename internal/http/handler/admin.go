package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SeunOnTech/sol-stake-backend/internal/auth"
	"github.com/SeunOnTech/sol-stake-backend/internal/http/dto"
	"github.com/SeunOnTech/sol-stake-backend/internal/queue"
	"github.com/SeunOnTech/sol-stake-backend/internal/service"
)

type AdminHandler struct {
	adminService service.AdminService
}

func NewAdminHandler(adminService service.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

func (h *AdminHandler) ClearCache(c *gin.Context) {
	res, err := h.adminService.ClearCache(c.Request.Context(), auth.FromGin(c))
	if err != nil {
		respondError(c, err, "failed to clear cache")
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *AdminHandler) InvalidateValidatorCache(c *gin.Context) {
	res, err := h.adminService.InvalidateValidatorCache(c.Request.Context(), auth.FromGin(c))
	if err != nil {
		respondError(c, err, "failed to invalidate validator cache")
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *AdminHandler) RateLimits(c *gin.Context) {
	overview, err := h.adminService.RateLimits(c.Request.Context(), auth.FromGin(c))
	if err != nil {
		respondError(c, err, "failed to list rate limits")
		return
	}
	c.JSON(http.StatusOK, overview)
}

func (h *AdminHandler) ResetRateLimit(c *gin.Context) {
	if err := h.adminService.ResetRateLimit(c.Request.Context(), auth.FromGin(c), c.Param("key")); err != nil {
		respondError(c, err, "failed to reset rate limit")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AdminHandler) EnqueueJob(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.EnqueueJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	handle, err := h.adminService.EnqueueJob(ctx, auth.FromGin(c), queue.TaskType(req.Type), req.Options())
	if err != nil {
		respondError(c, err, "failed to enqueue job")
		return
	}
	c.JSON(http.StatusAccepted, dto.ToTaskHandleResponse(handle))
}
