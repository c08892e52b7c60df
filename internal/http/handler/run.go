package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SeunOnTech/sol-stake-backend/internal/auth"
	"github.com/SeunOnTech/sol-stake-backend/internal/http/dto"
	"github.com/SeunOnTech/sol-stake-backend/internal/service"
)

type RunHandler struct {
	runService service.RunService
}

func NewRunHandler(runService service.RunService) *RunHandler {
	return &RunHandler{runService: runService}
}

func (h *RunHandler) List(c *gin.Context) {
	var q dto.PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	runs, err := h.runService.List(c.Request.Context(), auth.FromGin(c), q.Limit, q.Offset)
	if err != nil {
		respondError(c, err, "failed to list scoring runs")
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": dto.ToRunResponses(runs)})
}

func (h *RunHandler) Get(c *gin.Context) {
	runID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
		return
	}

	detail, err := h.runService.Get(c.Request.Context(), auth.FromGin(c), runID)
	if err != nil {
		respondError(c, err, "failed to get scoring run")
		return
	}
	c.JSON(http.StatusOK, dto.ToRunDetailResponse(detail))
}
