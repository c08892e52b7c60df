package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SeunOnTech/sol-stake-backend/internal/http/handler"
	"github.com/SeunOnTech/sol-stake-backend/internal/service"
)

type RouterConfig struct {
	// RateLimit guards /api/v1; nil disables it.
	RateLimit gin.HandlerFunc
	Metrics   http.Handler
	Deps      map[string]handler.Pinger
}

func SetupRoutes(router *gin.Engine, services *service.Services, cfg RouterConfig) {
	admin := services.Admin()

	healthHandler := handler.NewHealthHandler(admin, cfg.Deps)
	router.GET("/health", healthHandler.Health)
	router.GET("/health/cache", healthHandler.Cache)
	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	v1 := router.Group("/api/v1")
	if cfg.RateLimit != nil {
		v1.Use(cfg.RateLimit)
	}
	{
		validatorHandler := handler.NewValidatorHandler(services.Validators())
		ValidatorRouter(v1.Group("/validators"), validatorHandler)

		runHandler := handler.NewRunHandler(services.Runs())
		RunRouter(v1.Group("/runs"), runHandler)

		adminHandler := handler.NewAdminHandler(admin)
		AdminRouter(v1.Group("/admin"), adminHandler)
	}
}
