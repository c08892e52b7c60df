package service

import (
	"context"
	"time"

	"github.com/SeunOnTech/sol-stake-backend/internal/auth"
	"github.com/SeunOnTech/sol-stake-backend/internal/cache"
	"github.com/SeunOnTech/sol-stake-backend/internal/model"
	"github.com/SeunOnTech/sol-stake-backend/internal/store"
)

// Runs change state while scoring is in flight, so they are cached briefly.
const runCacheTTL = 30 * time.Second

// RunDetail is a scoring run plus the number of scores recorded against it.
type RunDetail struct {
	Run        model.ScoringRun `json:"run"`
	ScoreCount int64            `json:"score_count"`
}

type RunService interface {
	List(ctx context.Context, id auth.Identity, limit, offset int32) ([]model.ScoringRun, error)
	Get(ctx context.Context, id auth.Identity, runID int64) (*RunDetail, error)
}

type runService struct {
	runs   store.ScoringRunStore
	scores store.ScoreStore
	cache  ResponseCache
}

func NewRunService(runs store.ScoringRunStore, scores store.ScoreStore, cache ResponseCache) RunService {
	return &runService{runs: runs, scores: scores, cache: cache}
}

func (s *runService) List(ctx context.Context, id auth.Identity, limit, offset int32) ([]model.ScoringRun, error) {
	if err := auth.RequirePermission(id, auth.PermReadValidators); err != nil {
		return nil, err
	}
	limit, offset = clampPage(limit, offset)
	vars := map[string]int32{"limit": limit, "offset": offset}

	return readThrough(ctx, s.cache, cache.NamespaceRuns, "runs.list", vars, runCacheTTL, func() ([]model.ScoringRun, error) {
		runs, err := s.runs.List(ctx, limit, offset)
		if err != nil {
			return nil, storeFault("service.runs.list", err)
		}
		return runs, nil
	})
}

func (s *runService) Get(ctx context.Context, id auth.Identity, runID int64) (*RunDetail, error) {
	if err := auth.RequirePermission(id, auth.PermReadValidators); err != nil {
		return nil, err
	}

	return readThrough(ctx, s.cache, cache.NamespaceRuns, "runs.get", map[string]int64{"id": runID}, runCacheTTL, func() (*RunDetail, error) {
		run, err := s.runs.GetByID(ctx, runID)
		if err != nil {
			return nil, storeFault("service.runs.get", err)
		}
		count, err := s.scores.CountByRun(ctx, runID)
		if err != nil {
			return nil, storeFault("service.runs.get", err)
		}
		return &RunDetail{Run: *run, ScoreCount: count}, nil
	})
}
