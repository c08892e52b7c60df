package worker

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/SeunOnTech/sol-stake-backend/common/fault"
	"github.com/SeunOnTech/sol-stake-backend/common/logger"
	"github.com/SeunOnTech/sol-stake-backend/internal/model"
	"github.com/SeunOnTech/sol-stake-backend/internal/store"
)

// AuditSink writes one task.failed entry for every task that will not run again.
type AuditSink struct {
	audit store.AuditStore
	ids   IDGenerator
}

func NewAuditSink(audit store.AuditStore, ids IDGenerator) *AuditSink {
	return &AuditSink{audit: audit, ids: ids}
}

// Run consumes events until the channel is closed.
func (s *AuditSink) Run(ctx context.Context, events <-chan Event) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "ssb.worker.audit"})
	for e := range events {
		if !e.Kind.Final() {
			continue
		}
		if err := s.Record(context.WithoutCancel(ctx), e); err != nil {
			slog.ErrorContext(ctx, "failed to write task audit entry",
				"task_id", e.Task.ID,
				"error", err)
		}
	}
}

func (s *AuditSink) Record(ctx context.Context, e Event) error {
	reason := "attempts_exhausted"
	switch {
	case e.Kind == EventStalledFailed:
		reason = "stalled"
	case e.Err != nil && !fault.KindOf(e.Err).Retryable():
		reason = "not_retryable"
	}

	meta := map[string]any{
		"task_id":       e.Task.ID,
		"task_type":     e.Task.Type,
		"attempt":       e.Task.Attempt,
		"max_attempts":  e.Task.MaxAttempts,
		"stalled_count": e.Task.StalledCount,
		"reason":        reason,
	}
	if e.Err != nil {
		meta["error"] = e.Err.Error()
		meta["kind"] = fault.KindOf(e.Err).String()
	}
	if e.Task.RepeatID != "" {
		meta["repeat_id"] = e.Task.RepeatID
	}
	metadata, err := json.Marshal(meta)
	if err != nil {
		return err
	}

	_, err = s.audit.Create(ctx, &model.AuditEntry{
		ID:       s.ids.Next(),
		Action:   model.AuditActionTaskFailed,
		Metadata: metadata,
	})
	return err
}
