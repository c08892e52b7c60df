package worker

import (
	"context"

	"github.com/SeunOnTech/sol-stake-backend/common/fault"
	"github.com/SeunOnTech/sol-stake-backend/internal/queue"
)

// Handler executes one task. A returned error sends the task through the retry
// policy unless its fault kind is not retryable.
type Handler interface {
	Handle(ctx context.Context, task queue.Task) error
}

type HandlerFunc func(ctx context.Context, task queue.Task) error

func (f HandlerFunc) Handle(ctx context.Context, task queue.Task) error {
	return f(ctx, task)
}

// Registry dispatches tasks to handlers by type.
type Registry struct {
	handlers map[queue.TaskType]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[queue.TaskType]Handler)}
}

func (r *Registry) Register(taskType queue.TaskType, h Handler) {
	r.handlers[taskType] = h
}

func (r *Registry) Handle(ctx context.Context, task queue.Task) error {
	h, ok := r.handlers[task.Type]
	if !ok {
		return fault.Newf(fault.KindValidation, "worker.dispatch", "no handler for task type %q", task.Type)
	}
	return h.Handle(ctx, task)
}
