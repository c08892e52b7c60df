package store

import (
	"context"
	"errors"

	"github.com/SeunOnTech/sol-stake-backend/core/db/sqlc"
	"github.com/SeunOnTech/sol-stake-backend/internal/model"
	"github.com/jackc/pgx/v5"
)

type validatorStore struct {
	queries *sqlc.Queries
}

func newValidatorStore(queries *sqlc.Queries) ValidatorStore {
	return &validatorStore{queries: queries}
}

// Upsert inserts by pubkey or updates the existing row; v.ID is only used on insert.
func (s *validatorStore) Upsert(ctx context.Context, v *model.Validator) (*model.Validator, error) {
	row, err := s.queries.UpsertValidator(ctx, sqlc.UpsertValidatorParams{
		ID:          v.ID,
		Pubkey:      v.Pubkey,
		VoteAccount: v.VoteAccount,
		Name:        v.Name,
		Commission:  v.Commission,
		Uptime:      v.Uptime,
	})
	if err != nil {
		return nil, err
	}
	return toValidatorModel(row), nil
}

func (s *validatorStore) GetByPubkey(ctx context.Context, pubkey string) (*model.Validator, error) {
	row, err := s.queries.GetValidatorByPubkey(ctx, pubkey)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toValidatorModel(row), nil
}

func (s *validatorStore) List(ctx context.Context, limit, offset int32) ([]model.Validator, error) {
	rows, err := s.queries.ListValidators(ctx, sqlc.ListValidatorsParams{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, err
	}
	return toValidatorModels(rows), nil
}

func (s *validatorStore) ListAll(ctx context.Context) ([]model.Validator, error) {
	rows, err := s.queries.ListAllValidators(ctx)
	if err != nil {
		return nil, err
	}
	return toValidatorModels(rows), nil
}

func (s *validatorStore) Count(ctx context.Context) (int64, error) {
	return s.queries.CountValidators(ctx)
}

func toValidatorModels(rows []sqlc.Validator) []model.Validator {
	result := make([]model.Validator, 0, len(rows))
	for _, row := range rows {
		result = append(result, *toValidatorModel(row))
	}
	return result
}

func toValidatorModel(row sqlc.Validator) *model.Validator {
	return &model.Validator{
		ID:          row.ID,
		Pubkey:      row.Pubkey,
		VoteAccount: row.VoteAccount,
		Name:        row.Name,
		Commission:  row.Commission,
		Uptime:      row.Uptime,
		CreatedAt:   row.CreatedAt.Time,
		UpdatedAt:   row.UpdatedAt.Time,
	}
}
