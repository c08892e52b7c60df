package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SeunOnTech/sol-stake-backend/internal/auth"
	"github.com/SeunOnTech/sol-stake-backend/internal/http/dto"
	"github.com/SeunOnTech/sol-stake-backend/internal/service"
)

type ValidatorHandler struct {
	validatorService service.ValidatorService
}

func NewValidatorHandler(validatorService service.ValidatorService) *ValidatorHandler {
	return &ValidatorHandler{validatorService: validatorService}
}

func (h *ValidatorHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	var q dto.PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		slog.WarnContext(ctx, "invalid query", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	page, err := h.validatorService.List(ctx, auth.FromGin(c), q.Limit, q.Offset)
	if err != nil {
		respondError(c, err, "failed to list validators")
		return
	}
	c.JSON(http.StatusOK, dto.ToValidatorListResponse(page))
}

func (h *ValidatorHandler) Get(c *gin.Context) {
	detail, err := h.validatorService.Get(c.Request.Context(), auth.FromGin(c), c.Param("pubkey"))
	if err != nil {
		respondError(c, err, "failed to get validator")
		return
	}
	c.JSON(http.StatusOK, dto.ToValidatorDetailResponse(detail))
}

func (h *ValidatorHandler) Scores(c *gin.Context) {
	limit, err := parseLimit(c.Query("limit"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
		return
	}

	scores, err := h.validatorService.Scores(c.Request.Context(), auth.FromGin(c), c.Param("pubkey"), limit)
	if err != nil {
		respondError(c, err, "failed to list scores")
		return
	}
	c.JSON(http.StatusOK, gin.H{"scores": dto.ToScoreResponses(scores)})
}

func parseLimit(raw string) (int32, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || n < 0 {
		return 0, strconv.ErrSyntax
	}
	return int32(n), nil
}
