// Command scheduler manages the repeatable fetch and score registrations and can
// enqueue one-off tasks.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/SeunOnTech/sol-stake-backend/common/id"
	"github.com/SeunOnTech/sol-stake-backend/common/logger"
	"github.com/SeunOnTech/sol-stake-backend/core/config"
	"github.com/SeunOnTech/sol-stake-backend/core/db"
	"github.com/SeunOnTech/sol-stake-backend/internal/queue"
	"github.com/SeunOnTech/sol-stake-backend/internal/scheduler"
	"github.com/SeunOnTech/sol-stake-backend/internal/store"
)

// app holds the clients every subcommand shares. It is filled in by the root
// command's pre-run.
type app struct {
	cfg      config.Config
	redis    *redis.Client
	ids      *id.Generator
	registry *scheduler.Registry
	producer *queue.RedisProducer
}

func main() {
	a := &app{}
	if err := newRootCmd(a).ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:          "scheduler",
		Short:        "Manage repeatable sol-stake jobs",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.Context())
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.redis != nil {
				_ = a.redis.Close()
			}
		},
	}
	root.AddCommand(
		newSetupCmd(a),
		newListCmd(a),
		newRemoveAllCmd(a),
		newEnqueueCmd(a),
		newStatsCmd(a),
		newAuditCmd(a),
	)
	return root
}

func (a *app) init(ctx context.Context) error {
	cfg, err := config.Load(config.ServiceTypeScheduler)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger.Setup(cfg)
	a.cfg = cfg

	ids, err := id.NewGenerator(cfg.NodeID)
	if err != nil {
		return fmt.Errorf("initializing id generator: %w", err)
	}
	a.ids = ids

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("parsing redis url: %w", err)
	}
	a.redis = redis.NewClient(opts)
	if err := a.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}

	a.registry = scheduler.NewRegistry(a.redis, cfg.Redis.KeyPrefix)
	a.producer = queue.NewRedisProducer(a.redis, queue.NewKeys(cfg.Redis.KeyPrefix), ids, queue.Defaults{
		MaxAttempts: cfg.Worker.MaxAttempts,
		Backoff:     cfg.Worker.Backoff,
	})
	return nil
}

// auditStore opens the database for one audit write. The returned close func is
// always safe to call.
func (a *app) auditStore(ctx context.Context) (store.AuditStore, func(), error) {
	database, err := db.New(ctx, a.cfg.DB)
	if err != nil {
		return nil, func() {}, err
	}
	return store.NewStores(database.Queries()).Audit(), database.Close, nil
}

func logIfErr(ctx context.Context, msg string, err error) {
	if err != nil {
		slog.WarnContext(ctx, msg, "error", err)
	}
}
