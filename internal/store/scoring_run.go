package store

import (
	"context"
	"errors"

	"github.com/SeunOnTech/sol-stake-backend/core/db/sqlc"
	"github.com/SeunOnTech/sol-stake-backend/internal/model"
	"github.com/jackc/pgx/v5"
)

type scoringRunStore struct {
	queries *sqlc.Queries
}

func newScoringRunStore(queries *sqlc.Queries) ScoringRunStore {
	return &scoringRunStore{queries: queries}
}

func (s *scoringRunStore) Create(ctx context.Context, run *model.ScoringRun) (*model.ScoringRun, error) {
	status := run.Status
	if status == "" {
		status = model.ScoringRunStatusRunning
	}
	row, err := s.queries.CreateScoringRun(ctx, sqlc.CreateScoringRunParams{
		ID:        run.ID,
		Status:    string(status),
		Attempted: run.Attempted,
	})
	if err != nil {
		return nil, err
	}
	return toScoringRunModel(row), nil
}

func (s *scoringRunStore) Finish(ctx context.Context, run *model.ScoringRun) (*model.ScoringRun, error) {
	row, err := s.queries.FinishScoringRun(ctx, sqlc.FinishScoringRunParams{
		ID:        run.ID,
		Status:    string(run.Status),
		Attempted: run.Attempted,
		Succeeded: run.Succeeded,
		Failed:    run.Failed,
		Error:     run.Error,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toScoringRunModel(row), nil
}

func (s *scoringRunStore) GetByID(ctx context.Context, id int64) (*model.ScoringRun, error) {
	row, err := s.queries.GetScoringRun(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toScoringRunModel(row), nil
}

func (s *scoringRunStore) List(ctx context.Context, limit, offset int32) ([]model.ScoringRun, error) {
	rows, err := s.queries.ListScoringRuns(ctx, sqlc.ListScoringRunsParams{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []model.ScoringRun{}, nil
		}
		return nil, err
	}
	runs := make([]model.ScoringRun, 0, len(rows))
	for _, row := range rows {
		runs = append(runs, *toScoringRunModel(row))
	}
	return runs, nil
}

func toScoringRunModel(row sqlc.ScoringRun) *model.ScoringRun {
	return &model.ScoringRun{
		ID:         row.ID,
		RunAt:      row.RunAt.Time,
		Status:     model.ScoringRunStatus(row.Status),
		Attempted:  row.Attempted,
		Succeeded:  row.Succeeded,
		Failed:     row.Failed,
		Error:      row.Error,
		FinishedAt: toTimePointer(row.FinishedAt),
	}
}
