package service

import (
	"context"

	"github.com/SeunOnTech/sol-stake-backend/internal/auth"
	"github.com/SeunOnTech/sol-stake-backend/internal/cache"
	"github.com/SeunOnTech/sol-stake-backend/internal/model"
	"github.com/SeunOnTech/sol-stake-backend/internal/store"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

type ValidatorPage struct {
	Validators []model.Validator `json:"validators"`
	Total      int64             `json:"total"`
	Limit      int32             `json:"limit"`
	Offset     int32             `json:"offset"`
}

// ValidatorDetail is a validator plus its most recent score, if it has one.
type ValidatorDetail struct {
	Validator   model.Validator `json:"validator"`
	LatestScore *model.Score    `json:"latest_score,omitempty"`
}

type ValidatorService interface {
	List(ctx context.Context, id auth.Identity, limit, offset int32) (*ValidatorPage, error)
	Get(ctx context.Context, id auth.Identity, pubkey string) (*ValidatorDetail, error)
	Scores(ctx context.Context, id auth.Identity, pubkey string, limit int32) ([]model.Score, error)
}

type validatorService struct {
	validators store.ValidatorStore
	scores     store.ScoreStore
	cache      ResponseCache
}

// NewValidatorService builds the validator read service. cache may be nil.
func NewValidatorService(validators store.ValidatorStore, scores store.ScoreStore, cache ResponseCache) ValidatorService {
	return &validatorService{validators: validators, scores: scores, cache: cache}
}

func (s *validatorService) List(ctx context.Context, id auth.Identity, limit, offset int32) (*ValidatorPage, error) {
	if err := auth.RequirePermission(id, auth.PermReadValidators); err != nil {
		return nil, err
	}
	limit, offset = clampPage(limit, offset)
	vars := map[string]int32{"limit": limit, "offset": offset}

	return readThrough(ctx, s.cache, cache.NamespaceValidators, "validators.list", vars, 0, func() (*ValidatorPage, error) {
		list, err := s.validators.List(ctx, limit, offset)
		if err != nil {
			return nil, storeFault("service.validators.list", err)
		}
		total, err := s.validators.Count(ctx)
		if err != nil {
			return nil, storeFault("service.validators.list", err)
		}
		return &ValidatorPage{Validators: list, Total: total, Limit: limit, Offset: offset}, nil
	})
}

func (s *validatorService) Get(ctx context.Context, id auth.Identity, pubkey string) (*ValidatorDetail, error) {
	if err := auth.RequirePermission(id, auth.PermReadValidators); err != nil {
		return nil, err
	}

	return readThrough(ctx, s.cache, cache.NamespaceValidators, "validators.get", map[string]string{"pubkey": pubkey}, 0, func() (*ValidatorDetail, error) {
		v, err := s.validators.GetByPubkey(ctx, pubkey)
		if err != nil {
			return nil, storeFault("service.validators.get", err)
		}
		detail := &ValidatorDetail{Validator: *v}

		latest, err := s.scores.ListByValidator(ctx, v.ID, 1)
		if err != nil {
			return nil, storeFault("service.validators.get", err)
		}
		if len(latest) > 0 {
			detail.LatestScore = &latest[0]
		}
		return detail, nil
	})
}

func (s *validatorService) Scores(ctx context.Context, id auth.Identity, pubkey string, limit int32) ([]model.Score, error) {
	if err := auth.RequirePermission(id, auth.PermReadValidators); err != nil {
		return nil, err
	}
	limit, _ = clampPage(limit, 0)
	vars := map[string]any{"pubkey": pubkey, "limit": limit}

	return readThrough(ctx, s.cache, cache.NamespaceValidators, "validators.scores", vars, 0, func() ([]model.Score, error) {
		v, err := s.validators.GetByPubkey(ctx, pubkey)
		if err != nil {
			return nil, storeFault("service.validators.scores", err)
		}
		scores, err := s.scores.ListByValidator(ctx, v.ID, limit)
		if err != nil {
			return nil, storeFault("service.validators.scores", err)
		}
		return scores, nil
	})
}

func clampPage(limit, offset int32) (int32, int32) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
