package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SeunOnTech/sol-stake-backend/common/id"
	"github.com/SeunOnTech/sol-stake-backend/common/logger"
	"github.com/SeunOnTech/sol-stake-backend/common/otel"
	"github.com/SeunOnTech/sol-stake-backend/core/config"
	"github.com/SeunOnTech/sol-stake-backend/core/db"
	"github.com/SeunOnTech/sol-stake-backend/internal/cache"
	"github.com/SeunOnTech/sol-stake-backend/internal/observability"
	"github.com/SeunOnTech/sol-stake-backend/internal/queue"
	"github.com/SeunOnTech/sol-stake-backend/internal/scheduler"
	"github.com/SeunOnTech/sol-stake-backend/internal/scoring"
	"github.com/SeunOnTech/sol-stake-backend/internal/service"
	"github.com/SeunOnTech/sol-stake-backend/internal/source"
	"github.com/SeunOnTech/sol-stake-backend/internal/store"
	"github.com/SeunOnTech/sol-stake-backend/internal/worker"
)

const promoteInterval = time.Second

func main() {
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeWorker)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	fmt.Printf("%s\n", banner)

	telemetry, err := otel.Setup(ctx, cfg.OTel, cfg.Env, config.ServiceTypeWorker)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}
	logger.Setup(cfg)

	consumerName := consumerName()
	slog.InfoContext(ctx, "sol-stake worker starting",
		"env", cfg.Env,
		"consumer", consumerName,
		"concurrency", cfg.Worker.Concurrency)

	ids, err := id.NewGenerator(cfg.NodeID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to initialize id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.InfoContext(ctx, "database connected")

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	slog.InfoContext(ctx, "redis connected", "prefix", cfg.Redis.KeyPrefix)

	keys := queue.NewKeys(cfg.Redis.KeyPrefix)
	consumer, err := queue.NewRedisConsumer(ctx, redisClient, keys, queue.ConsumerConfig{
		Consumer: consumerName,
		Block:    cfg.Worker.Block,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create consumer", "error", err)
		os.Exit(1)
	}
	producer := queue.NewRedisProducer(redisClient, keys, ids, queue.Defaults{
		MaxAttempts: cfg.Worker.MaxAttempts,
		Backoff:     cfg.Worker.Backoff,
	})

	metrics := observability.New()
	stores := store.NewStores(database.Queries())
	responseCache := cache.New(redisClient, cache.Config{DefaultTTL: cfg.Cache.DefaultTTL}, metrics)

	fetcher := source.NewClient(source.Config{
		PrimaryURL:   cfg.Source.PrimaryURL,
		SecondaryURL: cfg.Source.SecondaryURL,
		Timeout:      cfg.Source.Timeout,
		RetryBase:    cfg.Source.RetryBase,
		MaxRetries:   cfg.Source.MaxRetries,
	}, nil)

	engine := scoring.NewEngine(scoring.Config{
		BatchSize:   cfg.Scoring.BatchSize,
		Concurrency: cfg.Scoring.BatchConcurrency,
		BatchPause:  cfg.Scoring.BatchPause,
	}, scoring.Deps{
		Validators: stores.Validators(),
		Runs:       stores.ScoringRuns(),
		Scores:     stores.Scores(),
		Audit:      stores.Audit(),
		Tx:         service.NewTxRunner(database),
		IDs:        ids,
	})

	handlers := worker.NewRegistry()
	handlers.Register(queue.TaskTypeFetch, worker.NewFetchHandler(fetcher, stores.Validators(), ids, responseCache))
	handlers.Register(queue.TaskTypeScore, worker.NewScoreHandler(engine, metrics, responseCache))

	bus := worker.NewEventBus()
	// Final outcomes become audit entries, so that subscription must not drop.
	auditEvents := bus.Subscribe(64, worker.WithFilter(worker.FinalOnly), worker.Reliable())
	metricEvents := bus.Subscribe(256)

	pool := worker.New(consumer, handlers, database, bus, worker.Config{
		Concurrency:     cfg.Worker.Concurrency,
		StalledInterval: cfg.Worker.StalledInterval,
	})
	reclaimer := worker.NewReclaimer(consumer, bus, worker.ReclaimerConfig{
		StalledInterval: cfg.Worker.StalledInterval,
		MaxStalledCount: cfg.Worker.MaxStalledCount,
	})

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var sinks sync.WaitGroup
	sinks.Add(2)
	go func() {
		defer sinks.Done()
		worker.NewAuditSink(stores.Audit(), ids).Run(ctx, auditEvents)
	}()
	go func() {
		defer sinks.Done()
		worker.RunMetrics(metricEvents, metrics)
	}()

	var wg sync.WaitGroup
	run := func(fn func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(runCtx)
		}()
	}

	run(func(ctx context.Context) {
		if err := pool.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.ErrorContext(ctx, "worker pool stopped with error", "error", err)
		}
	})
	run(reclaimer.Run)
	run(func(ctx context.Context) { queue.NewPromoter(redisClient, keys).Run(ctx, promoteInterval) })
	run(func(ctx context.Context) { queue.NewJanitor(redisClient, keys).Run(ctx, cfg.Worker.JanitorInterval) })
	if cfg.Scheduler.Driver {
		registry := scheduler.NewRegistry(redisClient, cfg.Redis.KeyPrefix)
		run(scheduler.NewDriver(registry, redisClient, producer, cfg.Redis.KeyPrefix, cfg.Scheduler.SyncInterval).Run)
	}

	var metricsServer *http.Server
	if cfg.Worker.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsServer = &http.Server{Addr: cfg.Worker.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.ErrorContext(ctx, "metrics server error", "error", err)
			}
		}()
	}

	slog.InfoContext(ctx, "worker initialized and running", "driver", cfg.Scheduler.Driver)
	<-runCtx.Done()
	slog.InfoContext(ctx, "shutting down worker...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// In-flight tasks settle on a detached context, so waiting here lets them finish.
	done := make(chan struct{})
	go func() {
		wg.Wait()
		bus.Close()
		sinks.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		slog.WarnContext(ctx, "shutdown timeout exceeded")
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(ctx, "metrics server shutdown error", "error", err)
		}
	}
	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(ctx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(ctx, "worker shutdown complete")
}

func consumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}

const banner = `
 ____   ___  _       ____ _____  _    _  _______  __        _____  ____  _  _______ ____
/ ___| / _ \| |     / ___|_   _|/ \  | |/ / ____| \ \      / / _ \|  _ \| |/ / ____|  _ \
\___ \| | | | |     \___ \ | | / _ \ | ' /|  _|    \ \ /\ / / | | | |_) | ' /|  _| | |_) |
 ___) | |_| | |___   ___) || |/ ___ \| . \| |___    \ V  V /| |_| |  _ <| . \| |___|  _ <
|____/ \___/|_____| |____/ |_/_/   \_\_|\_\_____|    \_/\_/  \___/|_| \_\_|\_\_____|_| \_\
`
