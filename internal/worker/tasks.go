package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/SeunOnTech/sol-stake-backend/common/fault"
	"github.com/SeunOnTech/sol-stake-backend/common/logger"
	"github.com/SeunOnTech/sol-stake-backend/internal/model"
	"github.com/SeunOnTech/sol-stake-backend/internal/queue"
	"github.com/SeunOnTech/sol-stake-backend/internal/scoring"
	"github.com/SeunOnTech/sol-stake-backend/internal/source"
	"github.com/SeunOnTech/sol-stake-backend/internal/store"
)

// ValidatorCacheInvalidator drops cached read responses that embed validator data.
type ValidatorCacheInvalidator interface {
	InvalidateValidatorCache(ctx context.Context) (int, error)
}

// FetchHandler pulls the validator set from the network and upserts it.
type FetchHandler struct {
	fetcher    source.Fetcher
	validators store.ValidatorStore
	ids        IDGenerator
	cache      ValidatorCacheInvalidator
}

// NewFetchHandler builds the fetch task handler. cache may be nil.
func NewFetchHandler(fetcher source.Fetcher, validators store.ValidatorStore, ids IDGenerator, cache ValidatorCacheInvalidator) *FetchHandler {
	return &FetchHandler{fetcher: fetcher, validators: validators, ids: ids, cache: cache}
}

func (h *FetchHandler) Handle(ctx context.Context, _ queue.Task) error {
	res, err := h.fetcher.Fetch(ctx)
	if err != nil {
		return err
	}

	var saved, failed int
	var lastErr error
	for _, rec := range res.Records {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_, err := h.validators.Upsert(ctx, &model.Validator{
			ID:          h.ids.Next(),
			Pubkey:      rec.Pubkey,
			VoteAccount: rec.VoteAccount,
			Name:        rec.Name,
			Commission:  rec.Commission,
			Uptime:      rec.Uptime,
		})
		if err != nil {
			failed++
			lastErr = err
			slog.WarnContext(logger.WithLogFields(ctx, logger.LogFields{ValidatorPubkey: logger.Ptr(rec.Pubkey)}),
				"failed to save validator", "error", err)
			continue
		}
		saved++
	}

	slog.InfoContext(ctx, "validator fetch finished",
		"endpoint", res.Endpoint,
		"saved", saved,
		"save_failed", failed,
		"rejected", res.Tally.Failed)

	if saved == 0 && failed > 0 {
		return fault.New(fault.KindPersistenceUnavailable, "worker.fetch", lastErr)
	}

	h.invalidate(ctx)
	return nil
}

func (h *FetchHandler) invalidate(ctx context.Context) {
	if h.cache == nil {
		return
	}
	if n, err := h.cache.InvalidateValidatorCache(ctx); err != nil {
		slog.WarnContext(ctx, "failed to invalidate validator cache", "error", err)
	} else if n > 0 {
		slog.DebugContext(ctx, "invalidated validator cache", "keys", n)
	}
}

type ScoringRunner interface {
	Run(ctx context.Context) (scoring.RunResult, error)
}

type ScoringMetrics interface {
	ObserveScoringRun(status string, succeeded, failed int, duration time.Duration)
}

// ScoreHandler runs one scoring pass.
type ScoreHandler struct {
	engine  ScoringRunner
	metrics ScoringMetrics
	cache   ValidatorCacheInvalidator
}

// NewScoreHandler builds the score task handler. metrics and cache may be nil.
func NewScoreHandler(engine ScoringRunner, metrics ScoringMetrics, cache ValidatorCacheInvalidator) *ScoreHandler {
	return &ScoreHandler{engine: engine, metrics: metrics, cache: cache}
}

func (h *ScoreHandler) Handle(ctx context.Context, _ queue.Task) error {
	res, err := h.engine.Run(ctx)
	if res.RunID != 0 && h.metrics != nil {
		h.metrics.ObserveScoringRun(string(res.Status), res.Succeeded, res.Failed, res.Duration)
	}
	if err != nil {
		return err
	}

	if h.cache != nil {
		if _, err := h.cache.InvalidateValidatorCache(ctx); err != nil {
			slog.WarnContext(ctx, "failed to invalidate validator cache", "error", err)
		}
	}
	return nil
}
