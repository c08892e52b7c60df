package observability_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/SeunOnTech/sol-stake-backend/internal/observability"
)

var _ = Describe("Metrics", func() {
	var m *observability.Metrics

	BeforeEach(func() {
		m = observability.New()
	})

	scrape := func() string {
		w := httptest.NewRecorder()
		m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		body, err := io.ReadAll(w.Body)
		Expect(err).NotTo(HaveOccurred())
		return string(body)
	}

	It("exposes task, scoring, cache and rate limit series", func() {
		m.ObserveTask("fetch", "completed", 2*time.Second)
		m.ObserveScoringRun("completed", 49, 1, time.Second)
		m.ObserveCache(true)
		m.ObserveCache(false)
		m.ObserveRateLimit(true, false)
		m.ObserveRateLimit(false, false)
		m.ObserveRateLimit(true, true)

		body := scrape()
		Expect(body).To(ContainSubstring(`ssb_queue_task_outcomes_total{outcome="completed",type="fetch"} 1`))
		Expect(body).To(ContainSubstring(`ssb_scoring_validators_total{result="succeeded"} 49`))
		Expect(body).To(ContainSubstring(`ssb_scoring_validators_total{result="failed"} 1`))
		Expect(body).To(ContainSubstring(`ssb_cache_lookups_total{result="hit"} 1`))
		Expect(body).To(ContainSubstring(`ssb_ratelimit_decisions_total{decision="degraded"} 1`))
		Expect(body).To(ContainSubstring(`ssb_ratelimit_decisions_total{decision="rejected"} 1`))
	})

	It("labels requests by route template", func() {
		gin.SetMode(gin.TestMode)
		router := gin.New()
		router.Use(m.GinMiddleware())
		router.GET("/validators/:pubkey", func(c *gin.Context) { c.Status(http.StatusOK) })

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/validators/abc", nil))

		Expect(scrape()).To(ContainSubstring(`ssb_http_requests_total{method="GET",route="/validators/:pubkey",status="200"} 1`))
	})
})
