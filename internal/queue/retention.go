package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SeunOnTech/sol-stake-backend/common/logger"
)

const purgeBatch = 500

// Janitor deletes finished task records whose retention has run out.
type Janitor struct {
	client *redis.Client
	keys   Keys
	now    func() time.Time
}

func NewJanitor(client *redis.Client, keys Keys) *Janitor {
	return &Janitor{client: client, keys: keys, now: time.Now}
}

func (j *Janitor) PurgeExpired(ctx context.Context) (int, error) {
	cutoff := strconv.FormatInt(j.now().UnixMilli(), 10)
	purged := 0
	for _, index := range []string{j.keys.Completed(), j.keys.Failed()} {
		ids, err := j.client.ZRangeByScore(ctx, index, &redis.ZRangeBy{Min: "-inf", Max: cutoff, Count: purgeBatch}).Result()
		if err != nil {
			return purged, fmt.Errorf("listing expired tasks in %s: %w", index, err)
		}
		if len(ids) == 0 {
			continue
		}

		_, err = j.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, id := range ids {
				pipe.Del(ctx, j.keys.Task(id))
				pipe.ZRem(ctx, index, id)
			}
			return nil
		})
		if err != nil {
			return purged, fmt.Errorf("purging tasks in %s: %w", index, err)
		}
		purged += len(ids)
	}
	return purged, nil
}

func (j *Janitor) Run(ctx context.Context, interval time.Duration) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "ssb.queue.janitor"})
	runEvery(ctx, interval, func(ctx context.Context) {
		n, err := j.PurgeExpired(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "retention purge error", "error", err)
		}
		if n > 0 {
			slog.InfoContext(ctx, "purged finished tasks", "count", n)
		}
	})
}

type Counts struct {
	Waiting   int64 `json:"waiting"`
	Priority  int64 `json:"priority"`
	Delayed   int64 `json:"delayed"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

// Counts reports queue depth per state. Waiting includes entries already delivered
// but not yet acknowledged.
func (p *RedisProducer) Counts(ctx context.Context) (Counts, error) {
	var waiting, priority, delayed, completed, failed *redis.IntCmd
	_, err := p.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		waiting = pipe.XLen(ctx, p.keys.Stream())
		priority = pipe.XLen(ctx, p.keys.PriorityStream())
		delayed = pipe.ZCard(ctx, p.keys.Delayed())
		completed = pipe.ZCard(ctx, p.keys.Completed())
		failed = pipe.ZCard(ctx, p.keys.Failed())
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return Counts{}, fmt.Errorf("counting tasks: %w", err)
	}
	return Counts{
		Waiting:   waiting.Val(),
		Priority:  priority.Val(),
		Delayed:   delayed.Val(),
		Completed: completed.Val(),
		Failed:    failed.Val(),
	}, nil
}
