package model

import (
	"encoding/json"
	"time"
)

// Audit actions written by the core.
const (
	AuditActionTaskFailed                 = "task.failed"
	AuditActionScoringRunSetupFailed      = "scoring_run.setup_failed"
	AuditActionScoringRunCompletedWithErr = "scoring_run.completed_with_errors"
	AuditActionCacheCleared               = "cache.cleared"
	AuditActionSchedulerSetup             = "scheduler.setup"
)

// AuditEntry is an append-only record of a significant system event.
type AuditEntry struct {
	CreatedAt time.Time       `json:"created_at"`
	ActorID   *string         `json:"actor_id,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	Action    string          `json:"action"`
	ID        int64           `json:"id"`
}
