package router

import (
	"github.com/gin-gonic/gin"

	"github.com/SeunOnTech/sol-stake-backend/internal/http/handler"
)

func ValidatorRouter(rg *gin.RouterGroup, h *handler.ValidatorHandler) {
	rg.GET("", h.List)
	rg.GET("/:pubkey", h.Get)
	rg.GET("/:pubkey/scores", h.Scores)
}

func RunRouter(rg *gin.RouterGroup, h *handler.RunHandler) {
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
}
