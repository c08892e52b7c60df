package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/SeunOnTech/sol-stake-backend/common/fault"
	"github.com/SeunOnTech/sol-stake-backend/common/logger"
	"github.com/SeunOnTech/sol-stake-backend/internal/model"
	"github.com/SeunOnTech/sol-stake-backend/internal/service"
	"github.com/SeunOnTech/sol-stake-backend/internal/store"
)

const finalizeTimeout = 10 * time.Second

type Config struct {
	BatchSize   int
	Concurrency int
	BatchPause  time.Duration
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 10
	}
	if c.BatchPause < 0 {
		c.BatchPause = 0
	}
	return c
}

type IDGenerator interface {
	Next() int64
}

// Deps are the collaborators an Engine reads from and writes to outside the
// finalizing transaction.
type Deps struct {
	Validators store.ValidatorStore
	Runs       store.ScoringRunStore
	Scores     store.ScoreStore
	Audit      store.AuditStore
	Tx         service.TxRunner
	IDs        IDGenerator
}

type Engine struct {
	cfg  Config
	deps Deps
	now  func() time.Time
}

func NewEngine(cfg Config, deps Deps) *Engine {
	return &Engine{cfg: cfg.withDefaults(), deps: deps, now: time.Now}
}

type RunResult struct {
	RunID     int64
	Status    model.ScoringRunStatus
	Attempted int
	Succeeded int
	Failed    int
	Duration  time.Duration
}

// Run scores every known validator under a new scoring run. Failures on individual
// validators are counted, never fatal. The run is always finalized once created, even
// when the batch loop is cut short by ctx.
func (e *Engine) Run(ctx context.Context) (RunResult, error) {
	started := e.now()
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "ssb.scoring"})
	span := logger.StartSpan(ctx, "scoring.run")
	defer span.End()
	ctx = span.Context()

	run, err := e.deps.Runs.Create(ctx, &model.ScoringRun{
		ID:     e.deps.IDs.Next(),
		RunAt:  started,
		Status: model.ScoringRunStatusRunning,
	})
	if err != nil {
		e.recordSetupFailure(ctx, 0, "create_run", err)
		return RunResult{}, fault.New(fault.KindPersistenceUnavailable, "scoring.create_run", err)
	}
	ctx = logger.WithLogFields(ctx, logger.LogFields{RunID: logger.Ptr(run.ID)})

	validators, err := e.deps.Validators.ListAll(ctx)
	if err != nil {
		e.recordSetupFailure(ctx, run.ID, "list_validators", err)
		res := RunResult{RunID: run.ID, Status: model.ScoringRunStatusFailed}
		if ferr := e.finalize(ctx, run, res, err); ferr != nil {
			slog.ErrorContext(ctx, "failed to finalize scoring run", "error", ferr)
		}
		return res, fault.New(fault.KindPersistenceUnavailable, "scoring.list_validators", err)
	}

	slog.InfoContext(ctx, "scoring run started", "validators", len(validators), "batch_size", e.cfg.BatchSize)

	var succeeded, failed atomic.Int32
	for start := 0; start < len(validators); start += e.cfg.BatchSize {
		if start > 0 && !e.pause(ctx) {
			break
		}
		if ctx.Err() != nil {
			break
		}

		end := min(start+e.cfg.BatchSize, len(validators))
		var g errgroup.Group
		g.SetLimit(e.cfg.Concurrency)
		for _, v := range validators[start:end] {
			g.Go(func() error {
				defer func() {
					if r := recover(); r != nil {
						failed.Add(1)
						slog.ErrorContext(logger.WithLogFields(ctx, logger.LogFields{ValidatorPubkey: logger.Ptr(v.Pubkey)}),
							"panic recovered while scoring validator",
							"panic", r,
							"stack", string(debug.Stack()))
					}
				}()
				if err := e.scoreOne(ctx, run.ID, v); err != nil {
					failed.Add(1)
					slog.WarnContext(logger.WithLogFields(ctx, logger.LogFields{ValidatorPubkey: logger.Ptr(v.Pubkey)}),
						"failed to score validator",
						"kind", fault.KindOf(err).String(),
						"error", err)
					return nil
				}
				succeeded.Add(1)
				return nil
			})
		}
		_ = g.Wait()
	}

	res := RunResult{
		RunID:     run.ID,
		Status:    model.ScoringRunStatusCompleted,
		Attempted: len(validators),
		Succeeded: int(succeeded.Load()),
		Failed:    int(failed.Load()),
	}

	var cause error
	if ctx.Err() != nil {
		res.Status = model.ScoringRunStatusFailed
		cause = fmt.Errorf("interrupted after %d of %d validators: %w", res.Succeeded+res.Failed, res.Attempted, ctx.Err())
	}

	if err := e.finalize(ctx, run, res, cause); err != nil {
		return res, fault.New(fault.KindPersistenceUnavailable, "scoring.finalize", err)
	}
	res.Duration = e.now().Sub(started)

	slog.InfoContext(ctx, "scoring run finished",
		"status", res.Status,
		"attempted", res.Attempted,
		"succeeded", res.Succeeded,
		"failed", res.Failed,
		"duration_ms", res.Duration.Milliseconds())

	if cause != nil {
		return res, cause
	}
	return res, nil
}

func (e *Engine) scoreOne(ctx context.Context, runID int64, v model.Validator) error {
	if err := ValidateInputs(v.Uptime, v.Commission); err != nil {
		return err
	}
	_, err := e.deps.Scores.Create(ctx, &model.Score{
		ID:           e.deps.IDs.Next(),
		ValidatorID:  v.ID,
		ScoringRunID: runID,
		Value:        Score(v.Uptime, v.Commission),
	})
	if err != nil {
		return fmt.Errorf("inserting score: %w", err)
	}
	return nil
}

// pause waits BatchPause between batches and reports false if ctx ended first.
func (e *Engine) pause(ctx context.Context) bool {
	if e.cfg.BatchPause == 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(e.cfg.BatchPause)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// finalize writes the run's status and counts, plus an audit entry when some
// validators failed, in one transaction. It ignores cancellation of ctx.
func (e *Engine) finalize(ctx context.Context, run *model.ScoringRun, res RunResult, cause error) error {
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()

	finishedAt := e.now()
	finished := &model.ScoringRun{
		ID:         run.ID,
		RunAt:      run.RunAt,
		FinishedAt: &finishedAt,
		Status:     res.Status,
		Attempted:  int32(res.Attempted),
		Succeeded:  int32(res.Succeeded),
		Failed:     int32(res.Failed),
	}
	if cause != nil {
		finished.Error = logger.Ptr(cause.Error())
	}

	return e.deps.Tx.WithTx(fctx, func(stores service.StoreProvider) error {
		if _, err := stores.ScoringRuns().Finish(fctx, finished); err != nil {
			return fmt.Errorf("finishing run: %w", err)
		}
		if res.Failed == 0 {
			return nil
		}
		metadata, err := json.Marshal(map[string]any{
			"run_id":    run.ID,
			"attempted": res.Attempted,
			"succeeded": res.Succeeded,
			"failed":    res.Failed,
		})
		if err != nil {
			return fmt.Errorf("encoding audit metadata: %w", err)
		}
		if _, err := stores.Audit().Create(fctx, &model.AuditEntry{
			ID:       e.deps.IDs.Next(),
			Action:   model.AuditActionScoringRunCompletedWithErr,
			Metadata: metadata,
		}); err != nil {
			return fmt.Errorf("writing audit entry: %w", err)
		}
		return nil
	})
}

func (e *Engine) recordSetupFailure(ctx context.Context, runID int64, stage string, cause error) {
	slog.ErrorContext(ctx, "scoring run setup failed", "stage", stage, "error", cause)

	meta := map[string]any{"stage": stage, "error": cause.Error()}
	if runID != 0 {
		meta["run_id"] = runID
	}
	metadata, err := json.Marshal(meta)
	if err != nil {
		return
	}
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()
	if _, err := e.deps.Audit.Create(actx, &model.AuditEntry{
		ID:       e.deps.IDs.Next(),
		Action:   model.AuditActionScoringRunSetupFailed,
		Metadata: metadata,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to write setup audit entry", "error", err)
	}
}
