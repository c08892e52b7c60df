package queue

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"
)

type counterIDs struct {
	n atomic.Int64
}

func (c *counterIDs) NextString() string {
	return strconv.FormatInt(c.n.Add(1), 10)
}

var _ = Describe("Redis queue", func() {
	var (
		ctx      context.Context
		mr       *miniredis.Miniredis
		client   *redis.Client
		keys     Keys
		producer *RedisProducer
		consumer *RedisConsumer
		clock    time.Time
	)

	now := func() time.Time { return clock }

	BeforeEach(func() {
		ctx = context.Background()
		mr = miniredis.RunT(GinkgoT())
		client = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		DeferCleanup(client.Close)

		clock = time.UnixMilli(1_700_000_000_000)
		keys = NewKeys("ssb")
		producer = NewRedisProducer(client, keys, &counterIDs{}, Defaults{})
		producer.now = now

		var err error
		consumer, err = NewRedisConsumer(ctx, client, keys, ConsumerConfig{Consumer: "test-1", Block: 10 * time.Millisecond})
		Expect(err).NotTo(HaveOccurred())
		consumer.now = now
	})

	It("creates consumer groups idempotently", func() {
		_, err := NewRedisConsumer(ctx, client, keys, ConsumerConfig{Consumer: "test-2"})
		Expect(err).NotTo(HaveOccurred())
	})

	It("delivers an enqueued task and records its completion", func() {
		handle, err := producer.Enqueue(ctx, TaskTypeFetch, nil, EnqueueOptions{})
		Expect(err).NotTo(HaveOccurred())
		Expect(handle.State).To(Equal(StateWaiting))

		d, err := consumer.Next(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(d).NotTo(BeNil())
		Expect(d.Task.ID).To(Equal(handle.ID))
		Expect(d.Task.Type).To(Equal(TaskTypeFetch))
		Expect(d.Task.Attempt).To(Equal(1))
		Expect(d.Task.MaxAttempts).To(Equal(3))
		Expect(d.Task.Backoff).To(Equal(2 * time.Second))
		Expect(d.Task.State).To(Equal(StateActive))

		Expect(consumer.Complete(ctx, d)).To(Succeed())

		task, err := producer.Get(ctx, handle.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(task.State).To(Equal(StateCompleted))
		Expect(task.FinishedAt).To(Equal(clock))

		counts, err := producer.Counts(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(counts.Completed).To(Equal(int64(1)))
		Expect(counts.Waiting).To(BeZero())
	})

	It("returns nil when nothing is waiting", func() {
		d, err := consumer.Next(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(BeNil())
	})

	It("prefers priority tasks", func() {
		_, err := producer.Enqueue(ctx, TaskTypeFetch, nil, EnqueueOptions{})
		Expect(err).NotTo(HaveOccurred())
		urgent, err := producer.Enqueue(ctx, TaskTypeScore, map[string]string{"reason": "manual"}, EnqueueOptions{Priority: 1})
		Expect(err).NotTo(HaveOccurred())

		d, err := consumer.Next(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(d.Task.ID).To(Equal(urgent.ID))
		Expect(string(d.Task.Payload)).To(MatchJSON(`{"reason":"manual"}`))
	})

	It("holds delayed tasks until they are due", func() {
		handle, err := producer.Enqueue(ctx, TaskTypeScore, nil, EnqueueOptions{Delay: time.Minute})
		Expect(err).NotTo(HaveOccurred())
		Expect(handle.State).To(Equal(StateDelayed))

		d, err := consumer.Next(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(BeNil())

		promoter := NewPromoter(client, keys)
		promoter.now = now
		n, err := promoter.PromoteDue(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(BeZero())

		clock = clock.Add(time.Minute)
		n, err = promoter.PromoteDue(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(1))

		d, err = consumer.Next(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(d.Task.ID).To(Equal(handle.ID))
	})

	It("redelivers a retried task with the next attempt number", func() {
		_, err := producer.Enqueue(ctx, TaskTypeFetch, nil, EnqueueOptions{})
		Expect(err).NotTo(HaveOccurred())

		d, err := consumer.Next(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(consumer.Retry(ctx, d, errors.New("upstream 502"), d.Task.BackoffFor(d.Task.Attempt))).To(Succeed())

		task, err := producer.Get(ctx, d.Task.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(task.State).To(Equal(StateDelayed))
		Expect(task.LastError).To(Equal("upstream 502"))

		promoter := NewPromoter(client, keys)
		clock = clock.Add(2 * time.Second)
		promoter.now = now
		_, err = promoter.PromoteDue(ctx)
		Expect(err).NotTo(HaveOccurred())

		again, err := consumer.Next(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(again.Task.ID).To(Equal(d.Task.ID))
		Expect(again.Task.Attempt).To(Equal(2))
	})

	It("purges failed tasks once their retention runs out", func() {
		keep := Retention{KeepCompleted: time.Minute, KeepFailed: time.Hour}
		handle, err := producer.Enqueue(ctx, TaskTypeScore, nil, EnqueueOptions{Retention: &keep})
		Expect(err).NotTo(HaveOccurred())

		d, err := consumer.Next(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(consumer.Fail(ctx, d, errors.New("boom"))).To(Succeed())

		janitor := NewJanitor(client, keys)
		janitor.now = now
		n, err := janitor.PurgeExpired(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(BeZero())

		clock = clock.Add(time.Hour)
		n, err = janitor.PurgeExpired(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(1))

		_, err = producer.Get(ctx, handle.ID)
		Expect(err).To(MatchError(ErrTaskNotFound))
	})

	It("drops stream entries whose task record is gone", func() {
		handle, err := producer.Enqueue(ctx, TaskTypeFetch, nil, EnqueueOptions{})
		Expect(err).NotTo(HaveOccurred())
		mr.Del(keys.Task(handle.ID))

		d, err := consumer.Next(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(BeNil())

		counts, err := producer.Counts(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(counts.Waiting).To(BeZero())
	})

	It("fails a promoted task whose record is unreadable so retention still purges it", func() {
		handle, err := producer.Enqueue(ctx, TaskTypeScore, nil, EnqueueOptions{Delay: time.Minute})
		Expect(err).NotTo(HaveOccurred())
		Expect(client.HSet(ctx, keys.Task(handle.ID), "attempt", "x").Err()).To(Succeed())

		promoter := NewPromoter(client, keys)
		promoter.now = now
		clock = clock.Add(time.Minute)
		n, err := promoter.PromoteDue(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(1))
		Expect(client.ZScore(ctx, keys.Delayed(), handle.ID).Err()).To(MatchError(redis.Nil))

		d, err := consumer.Next(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(BeNil())

		_, err = client.ZScore(ctx, keys.Failed(), handle.ID).Result()
		Expect(err).NotTo(HaveOccurred())
		Expect(client.HGet(ctx, keys.Task(handle.ID), "state").Val()).To(Equal(string(StateFailed)))
		Expect(client.HGet(ctx, keys.Task(handle.ID), "last_error").Val()).To(ContainSubstring("corrupt"))

		janitor := NewJanitor(client, keys)
		clock = clock.Add(DefaultRetention.KeepFailed)
		janitor.now = now
		purged, err := janitor.PurgeExpired(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(purged).To(Equal(1))
		_, err = producer.Get(ctx, handle.ID)
		Expect(err).To(MatchError(ErrTaskNotFound))
	})

	It("promotes a due task exactly once across concurrent promoters", func() {
		handle, err := producer.Enqueue(ctx, TaskTypeScore, nil, EnqueueOptions{Delay: time.Minute})
		Expect(err).NotTo(HaveOccurred())
		clock = clock.Add(time.Minute)

		var (
			wg    sync.WaitGroup
			total atomic.Int64
		)
		for range 4 {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				promoter := NewPromoter(client, keys)
				promoter.now = now
				n, err := promoter.PromoteDue(ctx)
				Expect(err).NotTo(HaveOccurred())
				total.Add(int64(n))
			}()
		}
		wg.Wait()
		Expect(total.Load()).To(Equal(int64(1)))

		length, err := client.XLen(ctx, keys.Stream()).Result()
		Expect(err).NotTo(HaveOccurred())
		Expect(length).To(Equal(int64(1)))

		d, err := consumer.Next(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(d.Task.ID).To(Equal(handle.ID))
	})

	It("keeps a stream entry pending when the task record cannot be read", func() {
		handle, err := producer.Enqueue(ctx, TaskTypeFetch, nil, EnqueueOptions{})
		Expect(err).NotTo(HaveOccurred())
		mr.Del(keys.Task(handle.ID))
		Expect(mr.Set(keys.Task(handle.ID), "not-a-hash")).To(Succeed())

		_, err = consumer.Next(ctx)
		Expect(err).To(HaveOccurred())
		Expect(err).NotTo(MatchError(ErrTaskNotFound))

		pending, err := client.XPending(ctx, keys.Stream(), consumerGroup).Result()
		Expect(err).NotTo(HaveOccurred())
		Expect(pending.Count).To(Equal(int64(1)))
	})

	It("claims and requeues a task whose consumer stopped heartbeating", func() {
		handle, err := producer.Enqueue(ctx, TaskTypeFetch, nil, EnqueueOptions{})
		Expect(err).NotTo(HaveOccurred())
		d, err := consumer.Next(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(d).NotTo(BeNil())

		rescuer, err := NewRedisConsumer(ctx, client, keys, ConsumerConfig{Consumer: "test-2", Block: 10 * time.Millisecond})
		Expect(err).NotTo(HaveOccurred())

		time.Sleep(20 * time.Millisecond)
		stalled, err := rescuer.ClaimStalled(ctx, 5*time.Millisecond, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(stalled).To(HaveLen(1))
		Expect(stalled[0].PreviousConsumer).To(Equal("test-1"))
		Expect(stalled[0].Task.ID).To(Equal(handle.ID))

		Expect(rescuer.RequeueStalled(ctx, &stalled[0].Delivery)).To(Succeed())

		again, err := rescuer.Next(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(again).NotTo(BeNil())
		Expect(again.Task.ID).To(Equal(handle.ID))
		Expect(again.Task.StalledCount).To(Equal(1))
	})

	It("leaves heartbeating tasks alone", func() {
		_, err := producer.Enqueue(ctx, TaskTypeScore, nil, EnqueueOptions{})
		Expect(err).NotTo(HaveOccurred())
		d, err := consumer.Next(ctx)
		Expect(err).NotTo(HaveOccurred())

		Expect(consumer.Heartbeat(ctx, d)).To(Succeed())
		stalled, err := consumer.ClaimStalled(ctx, time.Hour, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(stalled).To(BeEmpty())
	})

	It("rejects unknown task types", func() {
		_, err := producer.Enqueue(ctx, TaskType("reindex"), nil, EnqueueOptions{})
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Task", func() {
	It("doubles the backoff per attempt", func() {
		t := Task{Backoff: 2 * time.Second}
		Expect(t.BackoffFor(1)).To(Equal(2 * time.Second))
		Expect(t.BackoffFor(2)).To(Equal(4 * time.Second))
		Expect(t.BackoffFor(3)).To(Equal(8 * time.Second))
	})

	It("is exhausted once attempts reach the maximum", func() {
		Expect(Task{Attempt: 2, MaxAttempts: 3}.Exhausted()).To(BeFalse())
		Expect(Task{Attempt: 3, MaxAttempts: 3}.Exhausted()).To(BeTrue())
	})

	It("round-trips through its hash fields", func() {
		in := Task{
			ID:          "42",
			Type:        TaskTypeScore,
			Payload:     []byte(`{"a":1}`),
			State:       StateWaiting,
			Priority:    1,
			MaxAttempts: 3,
			Backoff:     2 * time.Second,
			RepeatID:    "score-repeatable",
			Retention:   DefaultRetention,
			CreatedAt:   time.UnixMilli(1_700_000_000_000),
		}
		values := map[string]string{}
		for k, v := range in.fields() {
			values[k] = toString(v)
		}

		out, err := parseTask("42", values)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(in))
	})
})

func toString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	default:
		panic("unexpected field type")
	}
}
