package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SeunOnTech/sol-stake-backend/common/logger"
)

type IDGenerator interface {
	NextString() string
}

// Defaults apply to any EnqueueOptions field left zero.
type Defaults struct {
	MaxAttempts int
	Backoff     time.Duration
	Retention   Retention
}

type EnqueueOptions struct {
	Priority    int
	Delay       time.Duration
	RepeatID    string
	MaxAttempts int
	Backoff     time.Duration
	Retention   *Retention
}

type TaskHandle struct {
	ID    string
	Type  TaskType
	State State
	DueAt time.Time
}

type Producer interface {
	Enqueue(ctx context.Context, taskType TaskType, payload any, opts EnqueueOptions) (TaskHandle, error)
}

type RedisProducer struct {
	client   *redis.Client
	keys     Keys
	ids      IDGenerator
	defaults Defaults
	now      func() time.Time
}

func NewRedisProducer(client *redis.Client, keys Keys, ids IDGenerator, defaults Defaults) *RedisProducer {
	if defaults.MaxAttempts <= 0 {
		defaults.MaxAttempts = 3
	}
	if defaults.Backoff <= 0 {
		defaults.Backoff = 2 * time.Second
	}
	if defaults.Retention == (Retention{}) {
		defaults.Retention = DefaultRetention
	}
	return &RedisProducer{
		client:   client,
		keys:     keys,
		ids:      ids,
		defaults: defaults,
		now:      time.Now,
	}
}

// Enqueue records the task and makes it visible to workers, either immediately on the
// stream matching its priority or after Delay via the delayed set.
func (p *RedisProducer) Enqueue(ctx context.Context, taskType TaskType, payload any, opts EnqueueOptions) (TaskHandle, error) {
	if !taskType.Valid() {
		return TaskHandle{}, fmt.Errorf("enqueue: unknown task type %q", taskType)
	}

	raw, err := encodePayload(payload)
	if err != nil {
		return TaskHandle{}, fmt.Errorf("enqueue %s: %w", taskType, err)
	}

	now := p.now()
	task := Task{
		ID:          p.ids.NextString(),
		Type:        taskType,
		Payload:     raw,
		State:       StateWaiting,
		Priority:    opts.Priority,
		MaxAttempts: opts.MaxAttempts,
		Backoff:     opts.Backoff,
		RepeatID:    opts.RepeatID,
		TraceID:     logger.TraceIDFromContext(ctx),
		Retention:   p.defaults.Retention,
		CreatedAt:   now,
	}
	if task.MaxAttempts <= 0 {
		task.MaxAttempts = p.defaults.MaxAttempts
	}
	if task.Backoff <= 0 {
		task.Backoff = p.defaults.Backoff
	}
	if opts.Retention != nil {
		task.Retention = *opts.Retention
	}

	dueAt := now
	if opts.Delay > 0 {
		task.State = StateDelayed
		dueAt = now.Add(opts.Delay)
	}

	_, err = p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, p.keys.Task(task.ID), task.fields())
		if task.State == StateDelayed {
			pipe.ZAdd(ctx, p.keys.Delayed(), redis.Z{Score: float64(dueAt.UnixMilli()), Member: task.ID})
			return nil
		}
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: p.keys.streamFor(task.Priority),
			Values: map[string]any{"task_id": task.ID},
		})
		return nil
	})
	if err != nil {
		return TaskHandle{}, fmt.Errorf("enqueue %s: %w", taskType, err)
	}

	slog.InfoContext(ctx, "task enqueued",
		"task_id", task.ID,
		"task_type", taskType,
		"state", task.State,
		"priority", task.Priority,
		"delay_ms", opts.Delay.Milliseconds(),
		"repeat_id", task.RepeatID)

	return TaskHandle{ID: task.ID, Type: taskType, State: task.State, DueAt: dueAt}, nil
}

// Get loads a task record. A purged or unknown id yields ErrTaskNotFound.
func (p *RedisProducer) Get(ctx context.Context, id string) (Task, error) {
	return loadTask(ctx, p.client, p.keys, id)
}

func encodePayload(payload any) (json.RawMessage, error) {
	switch v := payload.(type) {
	case nil:
		return json.RawMessage("{}"), nil
	case json.RawMessage:
		if len(v) == 0 {
			return json.RawMessage("{}"), nil
		}
		return v, nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encoding payload: %w", err)
		}
		return b, nil
	}
}
