package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/SeunOnTech/sol-stake-backend/common/id"
	"github.com/SeunOnTech/sol-stake-backend/common/logger"
	"github.com/SeunOnTech/sol-stake-backend/common/otel"
	"github.com/SeunOnTech/sol-stake-backend/core/config"
	"github.com/SeunOnTech/sol-stake-backend/core/db"
	"github.com/SeunOnTech/sol-stake-backend/internal/auth"
	"github.com/SeunOnTech/sol-stake-backend/internal/cache"
	"github.com/SeunOnTech/sol-stake-backend/internal/http/handler"
	"github.com/SeunOnTech/sol-stake-backend/internal/http/middleware"
	httprouter "github.com/SeunOnTech/sol-stake-backend/internal/http/router"
	"github.com/SeunOnTech/sol-stake-backend/internal/observability"
	"github.com/SeunOnTech/sol-stake-backend/internal/queue"
	"github.com/SeunOnTech/sol-stake-backend/internal/ratelimit"
	"github.com/SeunOnTech/sol-stake-backend/internal/service"
	"github.com/SeunOnTech/sol-stake-backend/internal/store"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeServer)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel, cfg.Env, config.ServiceTypeServer)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)
	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}
	slog.InfoContext(ctx, "sol-stake server starting", "env", cfg.Env, "service", cfg.OTel.ServiceName)

	ids, err := id.NewGenerator(cfg.NodeID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	if err := database.Migrate(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to apply migrations", "error", err)
		os.Exit(1)
	}
	slog.InfoContext(ctx, "database connected")

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		// Cache and rate limiting degrade without Redis; the server still starts.
		slog.WarnContext(ctx, "redis unreachable at startup", "error", err)
	} else {
		slog.InfoContext(ctx, "redis connected")
	}

	metrics := observability.New()
	responseCache := cache.New(redisClient, cache.Config{DefaultTTL: cfg.Cache.DefaultTTL}, metrics)
	limiter := ratelimit.New(redisClient, ratelimit.Config{
		Window:      cfg.RateLimit.Window,
		MaxRequests: cfg.RateLimit.MaxRequests,
	}, metrics)
	producer := queue.NewRedisProducer(redisClient, queue.NewKeys(cfg.Redis.KeyPrefix), ids, queue.Defaults{
		MaxAttempts: cfg.Worker.MaxAttempts,
		Backoff:     cfg.Worker.Backoff,
	})

	services := service.NewServices(service.ServicesConfig{
		Stores:   store.NewStores(database.Queries()),
		Cache:    responseCache,
		Limits:   limiter,
		Producer: producer,
		IDs:      ids,
	})

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, services, routerDeps{
		verifier: auth.NewVerifier(cfg.Auth.JWTSecret),
		limiter:  limiter,
		metrics:  metrics,
		database: database,
		cache:    responseCache,
	})
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

type routerDeps struct {
	verifier *auth.Verifier
	limiter  *ratelimit.Limiter
	metrics  *observability.Metrics
	database *db.DB
	cache    *cache.Cache
}

func setupRouter(cfg config.Config, services *service.Services, deps routerDeps) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(auth.Middleware(deps.verifier))
	router.Use(middleware.Logger())
	router.Use(deps.metrics.GinMiddleware())

	httprouter.SetupRoutes(router, services, httprouter.RouterConfig{
		RateLimit: ratelimit.Middleware(deps.limiter, middleware.RateLimitKey),
		Metrics:   deps.metrics.Handler(),
		Deps: map[string]handler.Pinger{
			"database": deps.database,
			"cache":    deps.cache,
		},
	})

	return router
}

const banner = `
 ____   ___  _       ____ _____  _    _  _______
/ ___| / _ \| |     / ___|_   _|/ \  | |/ / ____|
\___ \| | | | |     \___ \ | | / _ \ | ' /|  _|
 ___) | |_| | |___   ___) || |/ ___ \| . \| |___
|____/ \___/|_____| |____/ |_/_/   \_\_|\_\_____|
`
