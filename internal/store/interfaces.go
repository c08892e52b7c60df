package store

import (
	"context"
	"errors"

	"github.com/SeunOnTech/sol-stake-backend/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ValidatorStore defines the contract for validator data access
type ValidatorStore interface {
	Upsert(ctx context.Context, v *model.Validator) (*model.Validator, error)
	GetByPubkey(ctx context.Context, pubkey string) (*model.Validator, error)
	List(ctx context.Context, limit, offset int32) ([]model.Validator, error)
	ListAll(ctx context.Context) ([]model.Validator, error)
	Count(ctx context.Context) (int64, error)
}

// ScoringRunStore defines the contract for scoring run data access.
// Finish is the only mutation after Create.
type ScoringRunStore interface {
	Create(ctx context.Context, run *model.ScoringRun) (*model.ScoringRun, error)
	Finish(ctx context.Context, run *model.ScoringRun) (*model.ScoringRun, error)
	GetByID(ctx context.Context, id int64) (*model.ScoringRun, error)
	List(ctx context.Context, limit, offset int32) ([]model.ScoringRun, error)
}

// ScoreStore defines the contract for score data access. Scores are insert-only.
type ScoreStore interface {
	Create(ctx context.Context, score *model.Score) (*model.Score, error)
	ListByValidator(ctx context.Context, validatorID int64, limit int32) ([]model.Score, error)
	ListByRun(ctx context.Context, runID int64, limit, offset int32) ([]model.Score, error)
	CountByRun(ctx context.Context, runID int64) (int64, error)
}

// AuditStore is a write-mostly sink for significant system events.
type AuditStore interface {
	Create(ctx context.Context, entry *model.AuditEntry) (*model.AuditEntry, error)
	List(ctx context.Context, limit int32) ([]model.AuditEntry, error)
}
