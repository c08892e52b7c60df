package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SeunOnTech/sol-stake-backend/common/logger"
)

// StalledDelivery is a delivery taken over from a consumer that stopped heartbeating.
type StalledDelivery struct {
	Delivery
	PreviousConsumer string
	Idle             time.Duration
}

// ClaimStalled takes ownership of pending entries idle for at least minIdle on both
// streams. An entry already claimed by another process in the meantime is skipped.
func (c *RedisConsumer) ClaimStalled(ctx context.Context, minIdle time.Duration, count int64) ([]StalledDelivery, error) {
	var out []StalledDelivery
	for _, stream := range []string{c.keys.PriorityStream(), c.keys.Stream()} {
		pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
			Stream: stream,
			Group:  consumerGroup,
			Idle:   minIdle,
			Start:  "-",
			End:    "+",
			Count:  count,
		}).Result()
		if err != nil {
			return out, fmt.Errorf("xpending %s: %w", stream, err)
		}

		for _, p := range pending {
			d, ok, err := c.claim(ctx, stream, p, minIdle)
			if err != nil {
				slog.ErrorContext(ctx, "failed to claim stalled entry",
					"message_id", p.ID,
					"original_consumer", p.Consumer,
					"error", err)
				continue
			}
			if ok {
				out = append(out, d)
			}
		}
	}
	return out, nil
}

func (c *RedisConsumer) claim(ctx context.Context, stream string, p redis.XPendingExt, minIdle time.Duration) (StalledDelivery, bool, error) {
	msgID := p.ID
	ctx = logger.WithLogFields(ctx, logger.LogFields{MessageID: &msgID})

	messages, err := c.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   stream,
		Group:    consumerGroup,
		Consumer: c.cfg.Consumer,
		MinIdle:  minIdle,
		Messages: []string{p.ID},
	}).Result()
	if err != nil {
		return StalledDelivery{}, false, fmt.Errorf("xclaim: %w", err)
	}
	if len(messages) == 0 {
		slog.DebugContext(ctx, "stalled entry already claimed elsewhere")
		return StalledDelivery{}, false, nil
	}

	taskID := fmt.Sprint(messages[0].Values["task_id"])
	task, err := loadTask(ctx, c.client, c.keys, taskID)
	if err != nil {
		switch {
		case errors.Is(err, ErrTaskNotFound):
			c.drop(ctx, stream, p.ID)
			return StalledDelivery{}, false, nil
		case errors.Is(err, ErrTaskCorrupt):
			c.quarantine(ctx, stream, p.ID, taskID, err)
			return StalledDelivery{}, false, nil
		}
		return StalledDelivery{}, false, err
	}

	return StalledDelivery{
		Delivery:         Delivery{MessageID: p.ID, Stream: stream, Task: task},
		PreviousConsumer: p.Consumer,
		Idle:             p.Idle,
	}, true, nil
}

// RequeueStalled puts a stalled task back on its stream as waiting and counts the stall.
func (c *RedisConsumer) RequeueStalled(ctx context.Context, d *Delivery) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		c.release(ctx, pipe, d)
		pipe.HIncrBy(ctx, c.keys.Task(d.Task.ID), "stalled_count", 1)
		pipe.HSet(ctx, c.keys.Task(d.Task.ID), "state", string(StateWaiting))
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: c.keys.streamFor(d.Task.Priority),
			Values: map[string]any{"task_id": d.Task.ID},
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("requeueing stalled task %s: %w", d.Task.ID, err)
	}
	return nil
}
