package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SeunOnTech/sol-stake-backend/common/logger"
	"github.com/SeunOnTech/sol-stake-backend/internal/queue"
)

type ReclaimerConfig struct {
	StalledInterval time.Duration // Idle time without heartbeat after which a task is stalled
	Interval        time.Duration // How often to look for stalled tasks
	MaxStalledCount int           // Stalls tolerated before the task fails
	BatchSize       int64
}

// Reclaimer recovers tasks whose worker died or hung after picking them up.
// A stalled task is requeued until it has stalled MaxStalledCount times, then failed.
type Reclaimer struct {
	consumer StalledConsumer
	bus      *EventBus
	cfg      ReclaimerConfig
}

func NewReclaimer(consumer StalledConsumer, bus *EventBus, cfg ReclaimerConfig) *Reclaimer {
	if cfg.StalledInterval <= 0 {
		cfg.StalledInterval = 30 * time.Second
	}
	if cfg.Interval <= 0 {
		cfg.Interval = cfg.StalledInterval
	}
	if cfg.MaxStalledCount < 0 {
		cfg.MaxStalledCount = 0
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &Reclaimer{consumer: consumer, bus: bus, cfg: cfg}
}

// Run blocks until ctx is cancelled.
func (r *Reclaimer) Run(ctx context.Context) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "ssb.worker.reclaimer"})

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "reclaimer started",
		"interval", r.cfg.Interval,
		"stalled_interval", r.cfg.StalledInterval,
		"max_stalled_count", r.cfg.MaxStalledCount)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "reclaimer stopping")
			return
		case <-ticker.C:
			if _, err := r.ReclaimOnce(ctx); err != nil {
				slog.ErrorContext(ctx, "reclaim cycle error", "error", err)
			}
		}
	}
}

// ReclaimOnce handles every currently stalled task and returns how many it touched.
func (r *Reclaimer) ReclaimOnce(ctx context.Context) (int, error) {
	stalled, err := r.consumer.ClaimStalled(ctx, r.cfg.StalledInterval, r.cfg.BatchSize)
	if len(stalled) > 0 {
		slog.InfoContext(ctx, "found stalled tasks", "count", len(stalled))
	}

	handled := 0
	for i := range stalled {
		if herr := r.handle(ctx, &stalled[i]); herr != nil {
			slog.ErrorContext(ctx, "failed to recover stalled task",
				"task_id", stalled[i].Task.ID,
				"error", herr)
			continue
		}
		handled++
	}

	if err != nil {
		return handled, fmt.Errorf("claiming stalled tasks: %w", err)
	}
	return handled, nil
}

func (r *Reclaimer) handle(ctx context.Context, s *queue.StalledDelivery) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		TaskID:    logger.Ptr(s.Task.ID),
		TaskType:  logger.Ptr(string(s.Task.Type)),
		MessageID: logger.Ptr(s.MessageID),
	})

	if s.Task.StalledCount < r.cfg.MaxStalledCount {
		slog.WarnContext(ctx, "requeueing stalled task",
			"previous_consumer", s.PreviousConsumer,
			"idle_ms", s.Idle.Milliseconds(),
			"stalled_count", s.Task.StalledCount+1)
		if err := r.consumer.RequeueStalled(ctx, &s.Delivery); err != nil {
			return err
		}
		task := s.Task
		task.StalledCount++
		task.State = queue.StateWaiting
		r.publish(ctx, Event{Kind: EventStalledRequeued, Task: task})
		return nil
	}

	cause := fmt.Errorf("task stalled %d times without heartbeat", s.Task.StalledCount+1)
	slog.ErrorContext(ctx, "stalled task exceeded limit, failing",
		"previous_consumer", s.PreviousConsumer,
		"stalled_count", s.Task.StalledCount+1)
	if err := r.consumer.Fail(ctx, &s.Delivery, cause); err != nil {
		return err
	}
	task := s.Task
	task.StalledCount++
	task.State = queue.StateFailed
	task.LastError = cause.Error()
	r.publish(ctx, Event{Kind: EventStalledFailed, Task: task, Err: cause})
	return nil
}

func (r *Reclaimer) publish(ctx context.Context, e Event) {
	if r.bus != nil {
		r.bus.Publish(ctx, e)
	}
}
