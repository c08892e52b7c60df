package worker

import (
	"context"
	"time"

	"github.com/SeunOnTech/sol-stake-backend/internal/queue"
)

// Consumer abstracts the task queue for testability.
type Consumer interface {
	Next(ctx context.Context) (*queue.Delivery, error)
	Heartbeat(ctx context.Context, d *queue.Delivery) error
	Complete(ctx context.Context, d *queue.Delivery) error
	Retry(ctx context.Context, d *queue.Delivery, cause error, delay time.Duration) error
	Fail(ctx context.Context, d *queue.Delivery, cause error) error
}

// StalledConsumer is the part of the queue the reclaimer needs.
type StalledConsumer interface {
	ClaimStalled(ctx context.Context, minIdle time.Duration, count int64) ([]queue.StalledDelivery, error)
	RequeueStalled(ctx context.Context, d *queue.Delivery) error
	Fail(ctx context.Context, d *queue.Delivery, cause error) error
}

// Database is the relational store as the dependency check sees it.
type Database interface {
	Ping(ctx context.Context) error
	Reconnect(ctx context.Context) error
}

type IDGenerator interface {
	Next() int64
}
