package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/SeunOnTech/sol-stake-backend/common/logger"
	"github.com/SeunOnTech/sol-stake-backend/internal/queue"
)

type entry struct {
	id  cron.EntryID
	reg Registration
}

// Driver fires registered repeatable jobs. Any number of processes may run a Driver;
// each interval slot is claimed with SET NX so only one of them enqueues it.
type Driver struct {
	registry     *Registry
	client       *redis.Client
	producer     queue.Producer
	prefix       string
	syncInterval time.Duration
	cron         *cron.Cron
	now          func() time.Time

	mu      sync.Mutex
	entries map[string]entry
}

func NewDriver(registry *Registry, client *redis.Client, producer queue.Producer, prefix string, syncInterval time.Duration) *Driver {
	if prefix == "" {
		prefix = "ssb"
	}
	if syncInterval <= 0 {
		syncInterval = 15 * time.Second
	}
	return &Driver{
		registry:     registry,
		client:       client,
		producer:     producer,
		prefix:       prefix,
		syncInterval: syncInterval,
		cron:         cron.New(),
		now:          time.Now,
		entries:      make(map[string]entry),
	}
}

// Run schedules the current registrations, re-reads them every sync interval, and
// blocks until ctx is cancelled.
func (d *Driver) Run(ctx context.Context) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "ssb.scheduler.driver"})

	if err := d.Sync(ctx); err != nil {
		slog.ErrorContext(ctx, "initial repeatable sync failed", "error", err)
	}
	d.cron.Start()
	slog.InfoContext(ctx, "repeatable job driver started", "sync_interval", d.syncInterval)

	ticker := time.NewTicker(d.syncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			<-d.cron.Stop().Done()
			slog.InfoContext(ctx, "repeatable job driver stopped")
			return
		case <-ticker.C:
			if err := d.Sync(ctx); err != nil {
				slog.ErrorContext(ctx, "repeatable sync failed", "error", err)
			}
		}
	}
}

// Sync makes the cron schedule match the registry.
func (d *Driver) Sync(ctx context.Context) error {
	regs, err := d.registry.List(ctx)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	seen := make(map[string]bool, len(regs))
	for _, reg := range regs {
		seen[reg.ID] = true
		if cur, ok := d.entries[reg.ID]; ok && cur.reg.EveryMs == reg.EveryMs && cur.reg.Retention() == reg.Retention() {
			continue
		}
		if cur, ok := d.entries[reg.ID]; ok {
			d.cron.Remove(cur.id)
		}
		if reg.Every() < time.Second {
			slog.WarnContext(ctx, "ignoring registration with sub-second interval", "id", reg.ID, "every_ms", reg.EveryMs)
			delete(d.entries, reg.ID)
			continue
		}

		id := d.cron.Schedule(cron.Every(reg.Every()), cron.FuncJob(func() {
			if _, err := d.Fire(ctx, reg); err != nil {
				slog.ErrorContext(ctx, "repeatable job fire failed", "id", reg.ID, "error", err)
			}
		}))
		d.entries[reg.ID] = entry{id: id, reg: reg}
		slog.InfoContext(ctx, "repeatable job scheduled", "id", reg.ID, "every", reg.Every())
	}

	for id, cur := range d.entries {
		if !seen[id] {
			d.cron.Remove(cur.id)
			delete(d.entries, id)
			slog.InfoContext(ctx, "repeatable job unscheduled", "id", id)
		}
	}
	return nil
}

// Scheduled returns the ids currently on the cron schedule.
func (d *Driver) Scheduled() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	ids := make([]string, 0, len(d.entries))
	for id := range d.entries {
		ids = append(ids, id)
	}
	return ids
}

// Fire enqueues the registration's task for the current interval slot unless another
// process already did. It reports whether this call enqueued.
func (d *Driver) Fire(ctx context.Context, reg Registration) (bool, error) {
	every := reg.Every()
	if every <= 0 {
		return false, fmt.Errorf("registration %s has no interval", reg.ID)
	}
	slot := d.now().Truncate(every).UnixMilli()
	key := d.prefix + ":repeatable:slot:" + reg.ID + ":" + strconv.FormatInt(slot, 10)

	claimed, err := d.client.SetNX(ctx, key, "1", 2*every).Result()
	if err != nil {
		return false, fmt.Errorf("claiming slot %s: %w", key, err)
	}
	if !claimed {
		slog.DebugContext(ctx, "slot already claimed", "id", reg.ID, "slot", slot)
		return false, nil
	}

	retention := reg.Retention()
	if _, err := d.producer.Enqueue(ctx, reg.Type, map[string]any{"slot": slot}, queue.EnqueueOptions{
		RepeatID:  reg.ID,
		Retention: &retention,
	}); err != nil {
		d.client.Del(context.WithoutCancel(ctx), key)
		return false, fmt.Errorf("enqueueing %s: %w", reg.ID, err)
	}
	return true, nil
}
