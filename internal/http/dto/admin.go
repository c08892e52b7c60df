package dto

import (
	"time"

	"github.com/SeunOnTech/sol-stake-backend/internal/queue"
)

type EnqueueJobRequest struct {
	Type        string `json:"type" binding:"required,oneof=fetch score"`
	Priority    int    `json:"priority" binding:"omitempty,min=0,max=10"`
	DelayMs     int64  `json:"delay_ms" binding:"omitempty,min=0"`
	MaxAttempts int    `json:"max_attempts" binding:"omitempty,min=1,max=20"`
}

func (r EnqueueJobRequest) Options() queue.EnqueueOptions {
	return queue.EnqueueOptions{
		Priority:    r.Priority,
		Delay:       time.Duration(r.DelayMs) * time.Millisecond,
		MaxAttempts: r.MaxAttempts,
	}
}

type TaskHandleResponse struct {
	ID    string     `json:"id"`
	Type  string     `json:"type"`
	State string     `json:"state"`
	DueAt *time.Time `json:"due_at,omitempty"`
}

func ToTaskHandleResponse(h queue.TaskHandle) *TaskHandleResponse {
	out := &TaskHandleResponse{ID: h.ID, Type: string(h.Type), State: string(h.State)}
	if !h.DueAt.IsZero() {
		due := h.DueAt
		out.DueAt = &due
	}
	return out
}
