package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/SeunOnTech/sol-stake-backend/internal/queue"
)

type EventKind string

const (
	EventCompleted       EventKind = "completed"
	EventRetrying        EventKind = "retrying"
	EventFailed          EventKind = "failed"
	EventStalledRequeued EventKind = "stalled_requeued"
	EventStalledFailed   EventKind = "stalled_failed"
)

// Final reports whether the task will not run again.
func (k EventKind) Final() bool {
	return k == EventFailed || k == EventStalledFailed
}

// Event is one task outcome as seen by the pool or the reclaimer.
type Event struct {
	Kind     EventKind
	Task     queue.Task
	Err      error
	Duration time.Duration
	At       time.Time
}

// reliableWait bounds how long Publish waits on a full reliable subscriber.
const reliableWait = 30 * time.Second

// SubscribeOption tunes a single subscription.
type SubscribeOption func(*subscriber)

// WithFilter delivers only events accept returns true for. Filtered events never
// occupy the subscriber's buffer.
func WithFilter(accept func(Event) bool) SubscribeOption {
	return func(s *subscriber) { s.accept = accept }
}

// FinalOnly accepts events for tasks that will not run again.
func FinalOnly(e Event) bool { return e.Kind.Final() }

// Reliable makes Publish wait for buffer space instead of dropping. The wait is
// bounded by a fixed timeout, not by the publisher's context, so events raised
// while shutting down still arrive.
func Reliable() SubscribeOption {
	return func(s *subscriber) { s.reliable = true }
}

type subscriber struct {
	ch       chan Event
	accept   func(Event) bool
	reliable bool
}

// EventBus fans task outcomes out to subscribers. By default publishing never
// blocks and a subscriber that falls behind its buffer loses events; reliable
// subscribers hold the publisher until they catch up.
type EventBus struct {
	mu     sync.RWMutex
	subs   []*subscriber
	closed bool
}

func NewEventBus() *EventBus {
	return &EventBus{}
}

func (b *EventBus) Subscribe(buffer int, opts ...SubscribeOption) <-chan Event {
	if buffer < 0 {
		buffer = 0
	}
	sub := &subscriber{ch: make(chan Event, buffer)}
	for _, opt := range opts {
		opt(sub)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(sub.ch)
		return sub.ch
	}
	b.subs = append(b.subs, sub)
	return sub.ch
}

func (b *EventBus) Publish(ctx context.Context, e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, sub := range b.subs {
		if sub.accept != nil && !sub.accept(e) {
			continue
		}
		select {
		case sub.ch <- e:
			continue
		default:
		}
		if !sub.reliable {
			slog.WarnContext(ctx, "event subscriber full, dropping event",
				"kind", e.Kind,
				"task_id", e.Task.ID)
			continue
		}
		timer := time.NewTimer(reliableWait)
		select {
		case sub.ch <- e:
		case <-timer.C:
			slog.ErrorContext(ctx, "reliable event subscriber stuck, dropping event",
				"kind", e.Kind,
				"task_id", e.Task.ID,
				"waited", reliableWait)
		}
		timer.Stop()
	}
}

// Close ends every subscription. Publish after Close is a no-op.
func (b *EventBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, sub := range b.subs {
		close(sub.ch)
	}
}
