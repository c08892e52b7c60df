package handler_test

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/SeunOnTech/sol-stake-backend/internal/auth"
	"github.com/SeunOnTech/sol-stake-backend/internal/cache"
	"github.com/SeunOnTech/sol-stake-backend/internal/model"
	"github.com/SeunOnTech/sol-stake-backend/internal/queue"
	"github.com/SeunOnTech/sol-stake-backend/internal/service"
)

type mockValidatorService struct {
	listFn   func(ctx context.Context, id auth.Identity, limit, offset int32) (*service.ValidatorPage, error)
	getFn    func(ctx context.Context, id auth.Identity, pubkey string) (*service.ValidatorDetail, error)
	scoresFn func(ctx context.Context, id auth.Identity, pubkey string, limit int32) ([]model.Score, error)
}

func (m *mockValidatorService) List(ctx context.Context, id auth.Identity, limit, offset int32) (*service.ValidatorPage, error) {
	if m.listFn != nil {
		return m.listFn(ctx, id, limit, offset)
	}
	return &service.ValidatorPage{}, nil
}

func (m *mockValidatorService) Get(ctx context.Context, id auth.Identity, pubkey string) (*service.ValidatorDetail, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id, pubkey)
	}
	return &service.ValidatorDetail{}, nil
}

func (m *mockValidatorService) Scores(ctx context.Context, id auth.Identity, pubkey string, limit int32) ([]model.Score, error) {
	if m.scoresFn != nil {
		return m.scoresFn(ctx, id, pubkey, limit)
	}
	return nil, nil
}

type mockRunService struct {
	listFn func(ctx context.Context, id auth.Identity, limit, offset int32) ([]model.ScoringRun, error)
	getFn  func(ctx context.Context, id auth.Identity, runID int64) (*service.RunDetail, error)
}

func (m *mockRunService) List(ctx context.Context, id auth.Identity, limit, offset int32) ([]model.ScoringRun, error) {
	if m.listFn != nil {
		return m.listFn(ctx, id, limit, offset)
	}
	return nil, nil
}

func (m *mockRunService) Get(ctx context.Context, id auth.Identity, runID int64) (*service.RunDetail, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id, runID)
	}
	return &service.RunDetail{}, nil
}

type mockAdminService struct {
	clearCacheFn     func(ctx context.Context, id auth.Identity) (*service.CacheActionResult, error)
	invalidateFn     func(ctx context.Context, id auth.Identity) (*service.CacheActionResult, error)
	cacheStatsFn     func(ctx context.Context) (cache.Stats, error)
	rateLimitsFn     func(ctx context.Context, id auth.Identity) (*service.RateLimitOverview, error)
	resetRateLimitFn func(ctx context.Context, id auth.Identity, key string) error
	enqueueJobFn     func(ctx context.Context, id auth.Identity, taskType queue.TaskType, opts queue.EnqueueOptions) (queue.TaskHandle, error)
}

func (m *mockAdminService) ClearCache(ctx context.Context, id auth.Identity) (*service.CacheActionResult, error) {
	if m.clearCacheFn != nil {
		return m.clearCacheFn(ctx, id)
	}
	return &service.CacheActionResult{Success: true}, nil
}

func (m *mockAdminService) InvalidateValidatorCache(ctx context.Context, id auth.Identity) (*service.CacheActionResult, error) {
	if m.invalidateFn != nil {
		return m.invalidateFn(ctx, id)
	}
	return &service.CacheActionResult{Success: true}, nil
}

func (m *mockAdminService) CacheStats(ctx context.Context) (cache.Stats, error) {
	if m.cacheStatsFn != nil {
		return m.cacheStatsFn(ctx)
	}
	return cache.Stats{}, nil
}

func (m *mockAdminService) RateLimits(ctx context.Context, id auth.Identity) (*service.RateLimitOverview, error) {
	if m.rateLimitsFn != nil {
		return m.rateLimitsFn(ctx, id)
	}
	return &service.RateLimitOverview{}, nil
}

func (m *mockAdminService) ResetRateLimit(ctx context.Context, id auth.Identity, key string) error {
	if m.resetRateLimitFn != nil {
		return m.resetRateLimitFn(ctx, id, key)
	}
	return nil
}

func (m *mockAdminService) EnqueueJob(ctx context.Context, id auth.Identity, taskType queue.TaskType, opts queue.EnqueueOptions) (queue.TaskHandle, error) {
	if m.enqueueJobFn != nil {
		return m.enqueueJobFn(ctx, id, taskType, opts)
	}
	return queue.TaskHandle{}, nil
}

type mockPinger struct {
	err error
}

func (m mockPinger) Ping(context.Context) error {
	return m.err
}

// withIdentity stands in for auth.Middleware.
func withIdentity(id auth.Identity) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}
