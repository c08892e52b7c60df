package worker_test

import (
	"context"
	"encoding/json"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/SeunOnTech/sol-stake-backend/common/fault"
	"github.com/SeunOnTech/sol-stake-backend/internal/model"
	"github.com/SeunOnTech/sol-stake-backend/internal/queue"
	"github.com/SeunOnTech/sol-stake-backend/internal/scoring"
	"github.com/SeunOnTech/sol-stake-backend/internal/source"
	"github.com/SeunOnTech/sol-stake-backend/internal/worker"
)

type stubRunner struct {
	res scoring.RunResult
	err error
}

func (s stubRunner) Run(context.Context) (scoring.RunResult, error) { return s.res, s.err }

var _ = Describe("FetchHandler", func() {
	var (
		validators *mockValidatorStore
		cache      *mockInvalidator
	)

	BeforeEach(func() {
		validators = &mockValidatorStore{}
		cache = &mockInvalidator{}
	})

	records := []source.RawRecord{
		{Pubkey: "node-a", VoteAccount: "vote-a", Uptime: 99},
		{Pubkey: "node-b", VoteAccount: "vote-b", Uptime: 80},
	}

	It("upserts every fetched record and invalidates cached reads", func() {
		fetcher := &mockFetcher{res: &source.FetchResult{Records: records}}
		h := worker.NewFetchHandler(fetcher, validators, &seqIDs{}, cache)

		Expect(h.Handle(context.Background(), queue.Task{Type: queue.TaskTypeFetch})).To(Succeed())
		Expect(validators.upserted).To(HaveLen(2))
		Expect(validators.upserted[0].Pubkey).To(Equal("node-a"))
		Expect(validators.upserted[0].ID).NotTo(BeZero())
		Expect(cache.calls).To(Equal(1))
	})

	It("tolerates individual save failures", func() {
		fetcher := &mockFetcher{res: &source.FetchResult{Records: records}}
		validators.upsertFn = func(v *model.Validator) error {
			if v.Pubkey == "node-b" {
				return errors.New("constraint violation")
			}
			return nil
		}
		h := worker.NewFetchHandler(fetcher, validators, &seqIDs{}, nil)

		Expect(h.Handle(context.Background(), queue.Task{})).To(Succeed())
		Expect(validators.upserted).To(HaveLen(1))
	})

	It("reports persistence unavailable when nothing could be saved", func() {
		fetcher := &mockFetcher{res: &source.FetchResult{Records: records}}
		validators.upsertFn = func(*model.Validator) error { return errors.New("db down") }
		h := worker.NewFetchHandler(fetcher, validators, &seqIDs{}, cache)

		err := h.Handle(context.Background(), queue.Task{})
		Expect(fault.KindOf(err)).To(Equal(fault.KindPersistenceUnavailable))
		Expect(cache.calls).To(BeZero())
	})

	It("propagates source faults", func() {
		fetcher := &mockFetcher{err: fault.New(fault.KindRateLimited, "source.fetch_all", errors.New("429"))}
		h := worker.NewFetchHandler(fetcher, validators, &seqIDs{}, cache)

		err := h.Handle(context.Background(), queue.Task{})
		Expect(fault.KindOf(err)).To(Equal(fault.KindRateLimited))
	})
})

var _ = Describe("ScoreHandler", func() {
	It("invalidates cached reads after a successful run", func() {
		cache := &mockInvalidator{}
		h := worker.NewScoreHandler(stubRunner{res: scoring.RunResult{RunID: 7, Status: model.ScoringRunStatusCompleted}}, nil, cache)

		Expect(h.Handle(context.Background(), queue.Task{})).To(Succeed())
		Expect(cache.calls).To(Equal(1))
	})

	It("returns the engine error", func() {
		h := worker.NewScoreHandler(stubRunner{err: errors.New("setup failed")}, nil, nil)
		Expect(h.Handle(context.Background(), queue.Task{})).To(MatchError("setup failed"))
	})
})

var _ = Describe("AuditSink", func() {
	It("writes task.failed for final outcomes only", func() {
		audit := &mockAuditStore{}
		sink := worker.NewAuditSink(audit, &seqIDs{})
		events := make(chan worker.Event, 3)
		events <- worker.Event{Kind: worker.EventRetrying, Task: queue.Task{ID: "t1"}}
		events <- worker.Event{Kind: worker.EventFailed, Task: queue.Task{ID: "t1", Type: queue.TaskTypeFetch, Attempt: 3, MaxAttempts: 3}, Err: errors.New("boom")}
		events <- worker.Event{Kind: worker.EventCompleted, Task: queue.Task{ID: "t2"}}
		close(events)

		sink.Run(context.Background(), events)

		entries := audit.snapshot()
		Expect(entries).To(HaveLen(1))
		Expect(entries[0].Action).To(Equal(model.AuditActionTaskFailed))

		var meta map[string]any
		Expect(json.Unmarshal(entries[0].Metadata, &meta)).To(Succeed())
		Expect(meta).To(HaveKeyWithValue("task_id", "t1"))
		Expect(meta).To(HaveKeyWithValue("error", "boom"))
		Expect(meta).To(HaveKeyWithValue("reason", "attempts_exhausted"))
	})
})
