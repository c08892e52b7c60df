package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/SeunOnTech/sol-stake-backend/core/db/sqlc"
	"github.com/SeunOnTech/sol-stake-backend/internal/model"
	"github.com/jackc/pgx/v5/pgtype"
)

type auditStore struct {
	queries *sqlc.Queries
}

func newAuditStore(queries *sqlc.Queries) AuditStore {
	return &auditStore{queries: queries}
}

func (s *auditStore) Create(ctx context.Context, entry *model.AuditEntry) (*model.AuditEntry, error) {
	metadata := []byte(entry.Metadata)
	if len(metadata) == 0 {
		metadata = []byte("{}")
	}
	row, err := s.queries.CreateAuditEntry(ctx, sqlc.CreateAuditEntryParams{
		ID:       entry.ID,
		Action:   entry.Action,
		ActorID:  entry.ActorID,
		Metadata: metadata,
	})
	if err != nil {
		return nil, err
	}
	return toAuditEntryModel(row), nil
}

func (s *auditStore) List(ctx context.Context, limit int32) ([]model.AuditEntry, error) {
	rows, err := s.queries.ListAuditEntries(ctx, limit)
	if err != nil {
		return nil, err
	}
	result := make([]model.AuditEntry, 0, len(rows))
	for _, row := range rows {
		result = append(result, *toAuditEntryModel(row))
	}
	return result, nil
}

func toAuditEntryModel(row sqlc.AuditEntry) *model.AuditEntry {
	return &model.AuditEntry{
		ID:        row.ID,
		Action:    row.Action,
		ActorID:   row.ActorID,
		Metadata:  json.RawMessage(row.Metadata),
		CreatedAt: row.CreatedAt.Time,
	}
}

func toTimePointer(value pgtype.Timestamptz) *time.Time {
	if !value.Valid {
		return nil
	}
	t := value.Time
	return &t
}
