package scheduler_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"

	"github.com/SeunOnTech/sol-stake-backend/internal/queue"
	"github.com/SeunOnTech/sol-stake-backend/internal/scheduler"
)

type enqueued struct {
	taskType queue.TaskType
	opts     queue.EnqueueOptions
}

type mockProducer struct {
	mu    sync.Mutex
	calls []enqueued
	err   error
}

func (m *mockProducer) Enqueue(_ context.Context, taskType queue.TaskType, _ any, opts queue.EnqueueOptions) (queue.TaskHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return queue.TaskHandle{}, m.err
	}
	m.calls = append(m.calls, enqueued{taskType: taskType, opts: opts})
	return queue.TaskHandle{ID: "1", Type: taskType, State: queue.StateWaiting}, nil
}

var _ = Describe("Registry", func() {
	var (
		ctx      context.Context
		client   *redis.Client
		registry *scheduler.Registry
	)

	BeforeEach(func() {
		ctx = context.Background()
		mr := miniredis.RunT(GinkgoT())
		client = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		DeferCleanup(client.Close)
		registry = scheduler.NewRegistry(client, "ssb")
	})

	It("registers one fetch and one score job", func() {
		regs, err := registry.Setup(ctx, scheduler.PresetFast)
		Expect(err).NotTo(HaveOccurred())
		Expect(regs).To(HaveLen(2))

		listed, err := registry.List(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(listed).To(HaveLen(2))
		Expect(listed[0].ID).To(Equal(scheduler.FetchRepeatID))
		Expect(listed[0].Type).To(Equal(queue.TaskTypeFetch))
		Expect(listed[0].Every()).To(Equal(30 * time.Second))
		Expect(listed[1].ID).To(Equal(scheduler.ScoreRepeatID))
		Expect(listed[1].Every()).To(Equal(time.Minute))
		Expect(listed[1].Retention().KeepFailed).To(Equal(24 * time.Hour))
	})

	It("is idempotent across repeated and switched setups", func() {
		for _, p := range []scheduler.Preset{scheduler.PresetFast, scheduler.PresetFast, scheduler.PresetSlow} {
			_, err := registry.Setup(ctx, p)
			Expect(err).NotTo(HaveOccurred())
		}

		listed, err := registry.List(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(listed).To(HaveLen(2))
		for _, reg := range listed {
			Expect(reg.Preset).To(Equal(scheduler.PresetSlow))
			Expect(reg.Every()).To(Equal(6 * time.Hour))
		}
	})

	It("rejects unknown presets", func() {
		_, err := registry.Setup(ctx, scheduler.Preset("hourly"))
		Expect(err).To(HaveOccurred())
	})

	It("removes every registration", func() {
		_, err := registry.Setup(ctx, scheduler.PresetSlow)
		Expect(err).NotTo(HaveOccurred())

		n, err := registry.RemoveAll(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(2))

		listed, err := registry.List(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(listed).To(BeEmpty())
	})
})

var _ = Describe("Driver", func() {
	var (
		ctx      context.Context
		client   *redis.Client
		registry *scheduler.Registry
		producer *mockProducer
	)

	BeforeEach(func() {
		ctx = context.Background()
		mr := miniredis.RunT(GinkgoT())
		client = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		DeferCleanup(client.Close)
		registry = scheduler.NewRegistry(client, "ssb")
		producer = &mockProducer{}
	})

	fetchReg := func() scheduler.Registration {
		return scheduler.Registration{
			ID:              scheduler.FetchRepeatID,
			Type:            queue.TaskTypeFetch,
			EveryMs:         time.Hour.Milliseconds(),
			KeepCompletedMs: time.Hour.Milliseconds(),
			KeepFailedMs:    (24 * time.Hour).Milliseconds(),
		}
	}

	It("enqueues each interval slot once across drivers", func() {
		a := scheduler.NewDriver(registry, client, producer, "ssb", time.Second)
		b := scheduler.NewDriver(registry, client, producer, "ssb", time.Second)

		firstA, err := a.Fire(ctx, fetchReg())
		Expect(err).NotTo(HaveOccurred())
		firstB, err := b.Fire(ctx, fetchReg())
		Expect(err).NotTo(HaveOccurred())

		Expect([]bool{firstA, firstB}).To(ConsistOf(true, false))
		Expect(producer.calls).To(HaveLen(1))
		Expect(producer.calls[0].taskType).To(Equal(queue.TaskTypeFetch))
		Expect(producer.calls[0].opts.RepeatID).To(Equal(scheduler.FetchRepeatID))
		Expect(producer.calls[0].opts.Retention.KeepFailed).To(Equal(24 * time.Hour))
	})

	It("releases the slot when enqueueing fails", func() {
		d := scheduler.NewDriver(registry, client, producer, "ssb", time.Second)
		producer.err = errors.New("redis down")

		ok, err := d.Fire(ctx, fetchReg())
		Expect(err).To(HaveOccurred())
		Expect(ok).To(BeFalse())

		producer.err = nil
		ok, err = d.Fire(ctx, fetchReg())
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
	})

	It("schedules and unschedules registrations on sync", func() {
		d := scheduler.NewDriver(registry, client, producer, "ssb", time.Second)

		_, err := registry.Setup(ctx, scheduler.PresetSlow)
		Expect(err).NotTo(HaveOccurred())
		Expect(d.Sync(ctx)).To(Succeed())
		Expect(d.Scheduled()).To(ConsistOf(scheduler.FetchRepeatID, scheduler.ScoreRepeatID))

		_, err = registry.RemoveAll(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(d.Sync(ctx)).To(Succeed())
		Expect(d.Scheduled()).To(BeEmpty())
	})
})
