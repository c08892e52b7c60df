package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/SeunOnTech/sol-stake-backend/common/fault"
	"github.com/SeunOnTech/sol-stake-backend/common/logger"
	"github.com/SeunOnTech/sol-stake-backend/internal/queue"
)

const bookkeepingTimeout = 10 * time.Second

type Config struct {
	Concurrency     int
	StalledInterval time.Duration
	// ErrorBackoff is the pause before a slot reads again after a queue error.
	ErrorBackoff time.Duration
}

type Outcome string

const (
	OutcomeIdle      Outcome = "idle"
	OutcomeCompleted Outcome = "completed"
	OutcomeRetrying  Outcome = "retrying"
	OutcomeFailed    Outcome = "failed"
)

// Result is what happened to the task ProcessNext picked up, if any.
type Result struct {
	Outcome  Outcome
	Task     queue.Task
	Err      error
	RetryIn  time.Duration
	Duration time.Duration
}

type Worker struct {
	consumer Consumer
	handler  Handler
	db       Database
	bus      *EventBus
	cfg      Config
}

// New builds a pool. db may be nil to skip the dependency check; bus may be nil
// when nobody listens for outcomes.
func New(consumer Consumer, handler Handler, db Database, bus *EventBus, cfg Config) *Worker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 3
	}
	if cfg.StalledInterval <= 0 {
		cfg.StalledInterval = 30 * time.Second
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = time.Second
	}
	return &Worker{consumer: consumer, handler: handler, db: db, bus: bus, cfg: cfg}
}

// Run starts Concurrency slots, each processing one task at a time, and blocks until
// ctx is cancelled and every slot has returned.
func (w *Worker) Run(ctx context.Context) error {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "ssb.worker.pool"})
	slog.InfoContext(ctx, "worker pool started", "concurrency", w.cfg.Concurrency)

	var wg sync.WaitGroup
	for slot := range w.cfg.Concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.runSlot(ctx, slot)
		}()
	}
	wg.Wait()

	slog.InfoContext(ctx, "worker pool stopped")
	return ctx.Err()
}

func (w *Worker) runSlot(ctx context.Context, slot int) {
	for {
		if ctx.Err() != nil {
			return
		}
		if _, err := w.ProcessNext(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.ErrorContext(ctx, "slot processing error", "slot", slot, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.cfg.ErrorBackoff):
			}
		}
	}
}

// ProcessNext takes at most one task from the queue, runs it and records the
// outcome. The returned error covers queue failures only; a failing handler is
// reported through Result.
func (w *Worker) ProcessNext(ctx context.Context) (Result, error) {
	d, err := w.consumer.Next(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("reading next task: %w", err)
	}
	if d == nil {
		return Result{Outcome: OutcomeIdle}, nil
	}

	taskCtx := logger.WithLogFields(ctx, logger.LogFields{
		TaskID:    logger.Ptr(d.Task.ID),
		TaskType:  logger.Ptr(string(d.Task.Type)),
		MessageID: logger.Ptr(d.MessageID),
	})
	span := logger.StartSpanFromTraceID(taskCtx, d.Task.TraceID, "worker.process_task")
	defer span.End()
	taskCtx = span.Context()

	slog.InfoContext(taskCtx, "processing task",
		"attempt", d.Task.Attempt,
		"max_attempts", d.Task.MaxAttempts)

	start := time.Now()
	herr := w.checkDependencies(taskCtx)
	if herr == nil {
		herr = w.runHandler(taskCtx, d)
	}
	span.RecordError(herr)

	res := Result{Task: d.Task, Err: herr, Duration: time.Since(start)}
	kind, err := w.settle(taskCtx, d, &res)

	w.publish(taskCtx, Event{Kind: kind, Task: res.Task, Err: herr, Duration: res.Duration})
	return res, err
}

// settle records the handler outcome on the queue using a context that outlives
// shutdown, so a finished task is never left pending.
func (w *Worker) settle(ctx context.Context, d *queue.Delivery, res *Result) (EventKind, error) {
	bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), bookkeepingTimeout)
	defer cancel()

	if res.Err == nil {
		res.Outcome = OutcomeCompleted
		res.Task.State = queue.StateCompleted
		slog.InfoContext(ctx, "task completed", "duration_ms", res.Duration.Milliseconds())
		return EventCompleted, w.consumer.Complete(bctx, d)
	}

	if d.Task.Exhausted() || !fault.KindOf(res.Err).Retryable() {
		res.Outcome = OutcomeFailed
		res.Task.State = queue.StateFailed
		res.Task.LastError = res.Err.Error()
		slog.ErrorContext(ctx, "task failed",
			"attempt", d.Task.Attempt,
			"kind", fault.KindOf(res.Err).String(),
			"error", res.Err)
		return EventFailed, w.consumer.Fail(bctx, d, res.Err)
	}

	res.Outcome = OutcomeRetrying
	res.RetryIn = d.Task.BackoffFor(d.Task.Attempt)
	res.Task.State = queue.StateDelayed
	res.Task.LastError = res.Err.Error()
	slog.WarnContext(ctx, "task failed, retrying",
		"attempt", d.Task.Attempt,
		"retry_in_ms", res.RetryIn.Milliseconds(),
		"error", res.Err)
	return EventRetrying, w.consumer.Retry(bctx, d, res.Err, res.RetryIn)
}

// runHandler runs the handler while heartbeating the delivery, converting a panic
// into an error.
func (w *Worker) runHandler(ctx context.Context, d *queue.Delivery) (err error) {
	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.heartbeat(hbCtx, d)
	}()
	defer func() {
		stopHeartbeat()
		<-done
	}()

	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic recovered in task handler",
				"panic", r,
				"stack", string(debug.Stack()))
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	return w.handler.Handle(ctx, d.Task)
}

func (w *Worker) heartbeat(ctx context.Context, d *queue.Delivery) {
	interval := w.cfg.StalledInterval / 3
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.consumer.Heartbeat(ctx, d); err != nil && !errors.Is(err, context.Canceled) {
				slog.WarnContext(ctx, "heartbeat failed", "error", err)
			}
		}
	}
}

// checkDependencies pings the database and reconnects once before giving up.
func (w *Worker) checkDependencies(ctx context.Context) error {
	if w.db == nil {
		return nil
	}
	err := w.db.Ping(ctx)
	if err == nil {
		return nil
	}

	slog.WarnContext(ctx, "database unreachable, reconnecting", "error", err)
	if rerr := w.db.Reconnect(ctx); rerr != nil {
		return fault.New(fault.KindPersistenceUnavailable, "worker.check_dependencies", errors.Join(err, rerr))
	}
	if perr := w.db.Ping(ctx); perr != nil {
		return fault.New(fault.KindPersistenceUnavailable, "worker.check_dependencies", perr)
	}
	slog.InfoContext(ctx, "database reconnected")
	return nil
}

func (w *Worker) publish(ctx context.Context, e Event) {
	if w.bus != nil {
		w.bus.Publish(ctx, e)
	}
}
