package store

import (
	"github.com/SeunOnTech/sol-stake-backend/core/db/sqlc"
)

// Stores hands out typed stores bound to one sqlc.Queries, which is either the pool
// or a transaction.
type Stores struct {
	queries *sqlc.Queries
}

func NewStores(queries *sqlc.Queries) *Stores {
	return &Stores{queries: queries}
}

func (s *Stores) Validators() ValidatorStore {
	return newValidatorStore(s.queries)
}

func (s *Stores) ScoringRuns() ScoringRunStore {
	return newScoringRunStore(s.queries)
}

func (s *Stores) Scores() ScoreStore {
	return newScoreStore(s.queries)
}

func (s *Stores) Audit() AuditStore {
	return newAuditStore(s.queries)
}
