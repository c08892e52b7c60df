package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/SeunOnTech/sol-stake-backend/common/fault"
	"github.com/SeunOnTech/sol-stake-backend/internal/auth"
	"github.com/SeunOnTech/sol-stake-backend/internal/cache"
	"github.com/SeunOnTech/sol-stake-backend/internal/model"
	"github.com/SeunOnTech/sol-stake-backend/internal/queue"
	"github.com/SeunOnTech/sol-stake-backend/internal/ratelimit"
	"github.com/SeunOnTech/sol-stake-backend/internal/store"
)

type CacheAdmin interface {
	ClearAll(ctx context.Context) (int, error)
	InvalidateValidatorCache(ctx context.Context) (int, error)
	Stats(ctx context.Context) (cache.Stats, error)
	Ping(ctx context.Context) error
}

type RateLimitAdmin interface {
	List(ctx context.Context) ([]ratelimit.Window, error)
	Stats(ctx context.Context) (ratelimit.Stats, error)
	Reset(ctx context.Context, key string) error
}

type IDGenerator interface {
	Next() int64
}

type CacheActionResult struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Keys      int       `json:"keys"`
}

type RateLimitOverview struct {
	Windows []ratelimit.Window `json:"windows"`
	Stats   ratelimit.Stats    `json:"stats"`
}

type AdminService interface {
	ClearCache(ctx context.Context, id auth.Identity) (*CacheActionResult, error)
	InvalidateValidatorCache(ctx context.Context, id auth.Identity) (*CacheActionResult, error)
	CacheStats(ctx context.Context) (cache.Stats, error)
	RateLimits(ctx context.Context, id auth.Identity) (*RateLimitOverview, error)
	ResetRateLimit(ctx context.Context, id auth.Identity, key string) error
	EnqueueJob(ctx context.Context, id auth.Identity, taskType queue.TaskType, opts queue.EnqueueOptions) (queue.TaskHandle, error)
}

type adminService struct {
	cache    CacheAdmin
	limits   RateLimitAdmin
	producer queue.Producer
	audit    store.AuditStore
	ids      IDGenerator
	now      func() time.Time
}

func NewAdminService(c CacheAdmin, limits RateLimitAdmin, producer queue.Producer, audit store.AuditStore, ids IDGenerator) AdminService {
	return &adminService{
		cache:    c,
		limits:   limits,
		producer: producer,
		audit:    audit,
		ids:      ids,
		now:      time.Now,
	}
}

func (s *adminService) ClearCache(ctx context.Context, id auth.Identity) (*CacheActionResult, error) {
	if err := auth.RequirePermission(id, auth.PermAdminSystem); err != nil {
		return nil, err
	}
	n, err := s.cache.ClearAll(ctx)
	if err != nil {
		return nil, err
	}
	s.recordCacheAction(ctx, id, "all", n)
	return &CacheActionResult{
		Success:   true,
		Message:   fmt.Sprintf("cleared %d cache entries", n),
		Timestamp: s.now().UTC(),
		Keys:      n,
	}, nil
}

func (s *adminService) InvalidateValidatorCache(ctx context.Context, id auth.Identity) (*CacheActionResult, error) {
	if err := auth.RequirePermission(id, auth.PermAdminSystem); err != nil {
		return nil, err
	}
	n, err := s.cache.InvalidateValidatorCache(ctx)
	if err != nil {
		return nil, err
	}
	s.recordCacheAction(ctx, id, cache.NamespaceValidators, n)
	return &CacheActionResult{
		Success:   true,
		Message:   fmt.Sprintf("invalidated %d validator cache entries", n),
		Timestamp: s.now().UTC(),
		Keys:      n,
	}, nil
}

// CacheStats backs the public health probe and is not permission gated.
func (s *adminService) CacheStats(ctx context.Context) (cache.Stats, error) {
	if err := s.cache.Ping(ctx); err != nil {
		return cache.Stats{MemoryUsage: "unknown"}, err
	}
	return s.cache.Stats(ctx)
}

func (s *adminService) RateLimits(ctx context.Context, id auth.Identity) (*RateLimitOverview, error) {
	if err := auth.RequirePermission(id, auth.PermAdminSystem); err != nil {
		return nil, err
	}
	windows, err := s.limits.List(ctx)
	if err != nil {
		return nil, err
	}
	stats, err := s.limits.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &RateLimitOverview{Windows: windows, Stats: stats}, nil
}

func (s *adminService) ResetRateLimit(ctx context.Context, id auth.Identity, key string) error {
	if err := auth.RequirePermission(id, auth.PermAdminSystem); err != nil {
		return err
	}
	if key == "" {
		return fault.Newf(fault.KindValidation, "service.admin.reset_rate_limit", "key is required")
	}
	if err := s.limits.Reset(ctx, key); err != nil {
		return err
	}
	slog.InfoContext(ctx, "rate limit window reset", "key", key, "actor", id.UserID)
	return nil
}

func (s *adminService) EnqueueJob(ctx context.Context, id auth.Identity, taskType queue.TaskType, opts queue.EnqueueOptions) (queue.TaskHandle, error) {
	if err := auth.RequirePermission(id, auth.PermAdminSystem); err != nil {
		return queue.TaskHandle{}, err
	}
	if !taskType.Valid() {
		return queue.TaskHandle{}, fault.Newf(fault.KindValidation, "service.admin.enqueue_job", "unknown task type %q", taskType)
	}
	if opts.Delay < 0 {
		return queue.TaskHandle{}, fault.Newf(fault.KindValidation, "service.admin.enqueue_job", "delay must not be negative")
	}

	h, err := s.producer.Enqueue(ctx, taskType, nil, opts)
	if err != nil {
		return queue.TaskHandle{}, fmt.Errorf("enqueueing %s task: %w", taskType, err)
	}
	slog.InfoContext(ctx, "task enqueued by admin",
		"task_id", h.ID,
		"task_type", taskType,
		"actor", id.UserID)
	return h, nil
}

// recordCacheAction is best effort; the cache change already happened.
func (s *adminService) recordCacheAction(ctx context.Context, id auth.Identity, scope string, keys int) {
	if s.audit == nil {
		return
	}
	meta, _ := json.Marshal(map[string]any{"scope": scope, "keys": keys})
	entry := &model.AuditEntry{
		ID:       s.ids.Next(),
		ActorID:  &id.UserID,
		Action:   model.AuditActionCacheCleared,
		Metadata: meta,
	}
	if _, err := s.audit.Create(ctx, entry); err != nil {
		slog.WarnContext(ctx, "failed to write cache audit entry", "scope", scope, "error", err)
	}
}
