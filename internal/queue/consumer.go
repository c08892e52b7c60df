package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SeunOnTech/sol-stake-backend/common/logger"
)

var (
	ErrTaskNotFound = errors.New("task not found")
	// ErrTaskCorrupt marks a task record that exists but cannot be decoded.
	ErrTaskCorrupt = errors.New("task record corrupt")
)

type ConsumerConfig struct {
	Consumer string        // Redis consumer name, unique per process
	Block    time.Duration // How long to block on the normal stream per read
}

// Delivery is a task handed to this consumer together with the stream entry that
// carried it. The entry stays pending until Complete, Retry or Fail.
type Delivery struct {
	MessageID string
	Stream    string
	Task      Task
}

type RedisConsumer struct {
	client *redis.Client
	keys   Keys
	cfg    ConsumerConfig
	now    func() time.Time
}

func NewRedisConsumer(ctx context.Context, client *redis.Client, keys Keys, cfg ConsumerConfig) (*RedisConsumer, error) {
	if cfg.Consumer == "" {
		return nil, fmt.Errorf("consumer name is required")
	}
	c := &RedisConsumer{client: client, keys: keys, cfg: cfg, now: time.Now}
	for _, stream := range []string{keys.PriorityStream(), keys.Stream()} {
		if err := c.ensureGroup(ctx, stream); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *RedisConsumer) ensureGroup(ctx context.Context, stream string) error {
	// Start from "0" so entries added before the group existed are still delivered.
	err := c.client.XGroupCreateMkStream(ctx, stream, consumerGroup, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("creating consumer group on %s: %w", stream, err)
	}
	return nil
}

// Next returns the next task, preferring the priority stream, or nil when nothing
// arrived within Block.
func (c *RedisConsumer) Next(ctx context.Context) (*Delivery, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "ssb.queue.consumer"})

	msg, stream, err := c.read(ctx, c.keys.PriorityStream(), -1)
	if err != nil {
		return nil, err
	}
	if msg == nil {
		msg, stream, err = c.read(ctx, c.keys.Stream(), c.cfg.Block)
		if err != nil {
			return nil, err
		}
	}
	if msg == nil {
		return nil, nil
	}

	taskID := fmt.Sprint(msg.Values["task_id"])
	task, err := loadTask(ctx, c.client, c.keys, taskID)
	switch {
	case errors.Is(err, ErrTaskNotFound):
		slog.WarnContext(ctx, "dropping stream entry without a task record",
			"message_id", msg.ID,
			"task_id", taskID)
		c.drop(ctx, stream, msg.ID)
		return nil, nil
	case errors.Is(err, ErrTaskCorrupt):
		slog.ErrorContext(ctx, "failing task with an unreadable record",
			"message_id", msg.ID,
			"task_id", taskID,
			"error", err)
		c.quarantine(ctx, stream, msg.ID, taskID, err)
		return nil, nil
	case err != nil:
		// The entry stays pending; the reclaimer picks it up once it counts as stalled.
		return nil, err
	}

	now := c.now()
	var attempt *redis.IntCmd
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		attempt = pipe.HIncrBy(ctx, c.keys.Task(taskID), "attempt", 1)
		pipe.HSet(ctx, c.keys.Task(taskID),
			"state", string(StateActive),
			"started_at", now.UnixMilli(),
			"heartbeat_at", now.UnixMilli())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("activating task %s: %w", taskID, err)
	}

	task.Attempt = int(attempt.Val())
	task.State = StateActive
	task.StartedAt = now
	task.HeartbeatAt = now

	return &Delivery{MessageID: msg.ID, Stream: stream, Task: task}, nil
}

// read pulls at most one new entry. A negative block means do not block.
func (c *RedisConsumer) read(ctx context.Context, stream string, block time.Duration) (*redis.XMessage, string, error) {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    consumerGroup,
		Consumer: c.cfg.Consumer,
		Streams:  []string{stream, ">"},
		Count:    1,
		Block:    block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, "", nil
		}
		return nil, "", fmt.Errorf("reading from %s: %w", stream, err)
	}
	for _, s := range streams {
		if len(s.Messages) > 0 {
			m := s.Messages[0]
			return &m, s.Stream, nil
		}
	}
	return nil, "", nil
}

// Heartbeat resets the idle time of the delivery's stream entry so stalled
// detection leaves it alone.
func (c *RedisConsumer) Heartbeat(ctx context.Context, d *Delivery) error {
	if err := c.client.XClaimJustID(ctx, &redis.XClaimArgs{
		Stream:   d.Stream,
		Group:    consumerGroup,
		Consumer: c.cfg.Consumer,
		MinIdle:  0,
		Messages: []string{d.MessageID},
	}).Err(); err != nil {
		return fmt.Errorf("heartbeat %s: %w", d.Task.ID, err)
	}
	return c.client.HSet(ctx, c.keys.Task(d.Task.ID), "heartbeat_at", c.now().UnixMilli()).Err()
}

func (c *RedisConsumer) Complete(ctx context.Context, d *Delivery) error {
	now := c.now()
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		c.release(ctx, pipe, d)
		pipe.HSet(ctx, c.keys.Task(d.Task.ID),
			"state", string(StateCompleted),
			"finished_at", now.UnixMilli())
		pipe.ZAdd(ctx, c.keys.Completed(), redis.Z{
			Score:  float64(now.Add(d.Task.Retention.KeepCompleted).UnixMilli()),
			Member: d.Task.ID,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("completing task %s: %w", d.Task.ID, err)
	}
	return nil
}

// Retry moves the task to the delayed set to become waiting again after delay.
func (c *RedisConsumer) Retry(ctx context.Context, d *Delivery, cause error, delay time.Duration) error {
	due := c.now().Add(delay)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		c.release(ctx, pipe, d)
		pipe.HSet(ctx, c.keys.Task(d.Task.ID),
			"state", string(StateDelayed),
			"last_error", errorText(cause))
		pipe.ZAdd(ctx, c.keys.Delayed(), redis.Z{Score: float64(due.UnixMilli()), Member: d.Task.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("scheduling retry of task %s: %w", d.Task.ID, err)
	}
	return nil
}

func (c *RedisConsumer) Fail(ctx context.Context, d *Delivery, cause error) error {
	now := c.now()
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		c.release(ctx, pipe, d)
		pipe.HSet(ctx, c.keys.Task(d.Task.ID),
			"state", string(StateFailed),
			"last_error", errorText(cause),
			"finished_at", now.UnixMilli())
		pipe.ZAdd(ctx, c.keys.Failed(), redis.Z{
			Score:  float64(now.Add(d.Task.Retention.KeepFailed).UnixMilli()),
			Member: d.Task.ID,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failing task %s: %w", d.Task.ID, err)
	}
	return nil
}

// release acknowledges and deletes the delivery's stream entry.
func (c *RedisConsumer) release(ctx context.Context, pipe redis.Pipeliner, d *Delivery) {
	pipe.XAck(ctx, d.Stream, consumerGroup, d.MessageID)
	pipe.XDel(ctx, d.Stream, d.MessageID)
}

func (c *RedisConsumer) drop(ctx context.Context, stream, messageID string) {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.XAck(ctx, stream, consumerGroup, messageID)
		pipe.XDel(ctx, stream, messageID)
		return nil
	})
	if err != nil {
		slog.WarnContext(ctx, "failed to drop stream entry", "message_id", messageID, "error", err)
	}
}

// quarantine acknowledges the entry and files the task under failed, so the janitor
// still purges its record when retention runs out.
func (c *RedisConsumer) quarantine(ctx context.Context, stream, messageID, taskID string, cause error) {
	now := c.now()
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.XAck(ctx, stream, consumerGroup, messageID)
		pipe.XDel(ctx, stream, messageID)
		pipe.HSet(ctx, c.keys.Task(taskID),
			"state", string(StateFailed),
			"last_error", errorText(cause),
			"finished_at", now.UnixMilli())
		pipe.ZAdd(ctx, c.keys.Failed(), redis.Z{
			Score:  float64(now.Add(DefaultRetention.KeepFailed).UnixMilli()),
			Member: taskID,
		})
		return nil
	})
	if err != nil {
		slog.WarnContext(ctx, "failed to quarantine task", "task_id", taskID, "error", err)
	}
}

func loadTask(ctx context.Context, client *redis.Client, keys Keys, id string) (Task, error) {
	values, err := client.HGetAll(ctx, keys.Task(id)).Result()
	if err != nil {
		return Task{}, fmt.Errorf("loading task %s: %w", id, err)
	}
	if len(values) == 0 {
		return Task{}, fmt.Errorf("task %s: %w", id, ErrTaskNotFound)
	}
	task, err := parseTask(id, values)
	if err != nil {
		return Task{}, fmt.Errorf("%w: %w", ErrTaskCorrupt, err)
	}
	return task, nil
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return logger.Truncate(err.Error(), 2000)
}
