package store

import (
	"context"

	"github.com/SeunOnTech/sol-stake-backend/core/db/sqlc"
	"github.com/SeunOnTech/sol-stake-backend/internal/model"
)

type scoreStore struct {
	queries *sqlc.Queries
}

func newScoreStore(queries *sqlc.Queries) ScoreStore {
	return &scoreStore{queries: queries}
}

// Create inserts a score. The scoring_run_id foreign key rejects scores for runs that
// do not exist.
func (s *scoreStore) Create(ctx context.Context, score *model.Score) (*model.Score, error) {
	row, err := s.queries.CreateScore(ctx, sqlc.CreateScoreParams{
		ID:           score.ID,
		ValidatorID:  score.ValidatorID,
		ScoringRunID: score.ScoringRunID,
		Value:        score.Value,
	})
	if err != nil {
		return nil, err
	}
	return toScoreModel(row), nil
}

func (s *scoreStore) ListByValidator(ctx context.Context, validatorID int64, limit int32) ([]model.Score, error) {
	rows, err := s.queries.ListScoresByValidator(ctx, sqlc.ListScoresByValidatorParams{
		ValidatorID: validatorID,
		Limit:       limit,
	})
	if err != nil {
		return nil, err
	}
	return toScoreModels(rows), nil
}

func (s *scoreStore) ListByRun(ctx context.Context, runID int64, limit, offset int32) ([]model.Score, error) {
	rows, err := s.queries.ListScoresByRun(ctx, sqlc.ListScoresByRunParams{
		ScoringRunID: runID,
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		return nil, err
	}
	return toScoreModels(rows), nil
}

func (s *scoreStore) CountByRun(ctx context.Context, runID int64) (int64, error) {
	return s.queries.CountScoresByRun(ctx, runID)
}

func toScoreModels(rows []sqlc.Score) []model.Score {
	result := make([]model.Score, 0, len(rows))
	for _, row := range rows {
		result = append(result, *toScoreModel(row))
	}
	return result
}

func toScoreModel(row sqlc.Score) *model.Score {
	return &model.Score{
		ID:           row.ID,
		ValidatorID:  row.ValidatorID,
		ScoringRunID: row.ScoringRunID,
		Value:        row.Value,
		CreatedAt:    row.CreatedAt.Time,
	}
}
