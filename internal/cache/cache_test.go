package cache_test

import (
	"context"
	"strings"
	"time"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"

	"github.com/SeunOnTech/sol-stake-backend/internal/cache"
)

var _ = Describe("Cache", func() {
	var (
		ctx    context.Context
		mr     *miniredis.Miniredis
		client *redis.Client
		c      *cache.Cache
	)

	BeforeEach(func() {
		ctx = context.Background()
		mr = miniredis.RunT(GinkgoT())
		client = redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
		DeferCleanup(client.Close)
		c = cache.New(client, cache.Config{DefaultTTL: 300 * time.Second}, nil)
	})

	Describe("Key", func() {
		It("is stable regardless of variable key order", func() {
			a, err := cache.Key("validators", "/api/v1/validators", map[string]any{"limit": 10, "offset": 0})
			Expect(err).NotTo(HaveOccurred())
			b, err := cache.Key("validators", "/api/v1/validators", map[string]any{"offset": 0, "limit": 10})
			Expect(err).NotTo(HaveOccurred())

			Expect(a).To(Equal(b))
			Expect(a).To(HavePrefix("cache:validators:"))
			Expect(strings.TrimPrefix(a, "cache:validators:")).To(HaveLen(64))
		})

		It("differs when variables differ", func() {
			a, _ := cache.Key("validators", "/api/v1/validators", map[string]any{"limit": 10})
			b, _ := cache.Key("validators", "/api/v1/validators", map[string]any{"limit": 20})
			Expect(a).NotTo(Equal(b))
		})
	})

	It("round-trips a cached payload", func() {
		vars := map[string]any{"limit": 10}
		Expect(c.Set(ctx, "validators", "/api/v1/validators", vars, map[string]any{"count": 2}, 0)).To(Succeed())

		raw, ok := c.Get(ctx, "validators", "/api/v1/validators", vars)
		Expect(ok).To(BeTrue())
		Expect(string(raw)).To(MatchJSON(`{"count":2}`))
		Expect(mr.TTL(mustKey("validators", "/api/v1/validators", vars))).To(Equal(300 * time.Second))
	})

	It("misses for different variables", func() {
		Expect(c.Set(ctx, "validators", "/q", map[string]any{"limit": 10}, "x", 0)).To(Succeed())

		_, ok := c.Get(ctx, "validators", "/q", map[string]any{"limit": 11})
		Expect(ok).To(BeFalse())
	})

	It("expires entries after their TTL", func() {
		Expect(c.Set(ctx, "runs", "/q", nil, "x", 2*time.Second)).To(Succeed())
		mr.FastForward(3 * time.Second)

		_, ok := c.Get(ctx, "runs", "/q", nil)
		Expect(ok).To(BeFalse())
	})

	It("invalidates only validator entries", func() {
		Expect(c.Set(ctx, cache.NamespaceValidators, "/a", nil, 1, 0)).To(Succeed())
		Expect(c.Set(ctx, cache.NamespaceValidators, "/b", nil, 2, 0)).To(Succeed())
		Expect(c.Set(ctx, cache.NamespaceRuns, "/c", nil, 3, 0)).To(Succeed())

		n, err := c.InvalidateValidatorCache(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(2))

		_, ok := c.Get(ctx, cache.NamespaceValidators, "/a", nil)
		Expect(ok).To(BeFalse())
		_, ok = c.Get(ctx, cache.NamespaceRuns, "/c", nil)
		Expect(ok).To(BeTrue())
	})

	It("clears everything and reports stats", func() {
		Expect(c.Set(ctx, cache.NamespaceRuns, "/c", nil, 3, 0)).To(Succeed())
		_, _ = c.Get(ctx, cache.NamespaceRuns, "/c", nil)
		_, _ = c.Get(ctx, cache.NamespaceRuns, "/missing", nil)

		stats, err := c.Stats(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(stats.TotalKeys).To(Equal(1))
		Expect(stats.Hits).To(Equal(int64(1)))
		Expect(stats.Misses).To(Equal(int64(1)))
		Expect(stats.HitRate).To(BeNumerically("~", 0.5))

		n, err := c.ClearAll(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(1))
	})

	It("degrades to a miss when the store is down", func() {
		mr.Close()

		_, ok := c.Get(ctx, "validators", "/q", nil)
		Expect(ok).To(BeFalse())
		Expect(c.Set(ctx, "validators", "/q", nil, "x", 0)).To(Succeed())
		Expect(c.Ping(ctx)).NotTo(Succeed())
	})
})

func mustKey(namespace, query string, vars any) string {
	k, err := cache.Key(namespace, query, vars)
	Expect(err).NotTo(HaveOccurred())
	return k
}
