package service

import (
	"github.com/SeunOnTech/sol-stake-backend/internal/queue"
	"github.com/SeunOnTech/sol-stake-backend/internal/store"
)

// Cache is everything the services need from the response cache.
type Cache interface {
	ResponseCache
	CacheAdmin
}

type ServicesConfig struct {
	Stores   *store.Stores
	Cache    Cache
	Limits   RateLimitAdmin
	Producer queue.Producer
	IDs      IDGenerator
}

type Services struct {
	cfg ServicesConfig
}

func NewServices(cfg ServicesConfig) *Services {
	return &Services{cfg: cfg}
}

func (s *Services) Validators() ValidatorService {
	return NewValidatorService(s.cfg.Stores.Validators(), s.cfg.Stores.Scores(), s.cfg.Cache)
}

func (s *Services) Runs() RunService {
	return NewRunService(s.cfg.Stores.ScoringRuns(), s.cfg.Stores.Scores(), s.cfg.Cache)
}

func (s *Services) Admin() AdminService {
	return NewAdminService(s.cfg.Cache, s.cfg.Limits, s.cfg.Producer, s.cfg.Stores.Audit(), s.cfg.IDs)
}
