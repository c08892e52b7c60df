package service

import (
	"context"

	"github.com/SeunOnTech/sol-stake-backend/core/db"
	"github.com/SeunOnTech/sol-stake-backend/core/db/sqlc"
	"github.com/SeunOnTech/sol-stake-backend/internal/store"
)

// StoreProvider exposes only the stores needed by a transactional operation.
type StoreProvider interface {
	Validators() store.ValidatorStore
	ScoringRuns() store.ScoringRunStore
	Scores() store.ScoreStore
	Audit() store.AuditStore
}

// TxRunner runs functions within a transaction and provides stores bound to that transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(stores StoreProvider) error) error
}

type dbTxRunner struct {
	db *db.DB
}

// NewTxRunner builds a TxRunner backed by the core DB.
func NewTxRunner(db *db.DB) TxRunner {
	return &dbTxRunner{db: db}
}

func (r *dbTxRunner) WithTx(ctx context.Context, fn func(stores StoreProvider) error) error {
	return r.db.WithTx(ctx, func(q *sqlc.Queries) error {
		return fn(store.NewStores(q))
	})
}
