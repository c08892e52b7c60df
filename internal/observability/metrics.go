// Package observability holds the Prometheus collectors shared by the server and
// worker processes.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ssb"

// Metrics registers its collectors on a private registry so tests can build as
// many as they like.
type Metrics struct {
	registry *prometheus.Registry

	tasks        *prometheus.CounterVec
	taskDuration *prometheus.HistogramVec

	scoringRuns       *prometheus.CounterVec
	scoringValidators *prometheus.CounterVec
	scoringDuration   prometheus.Histogram

	rateLimit *prometheus.CounterVec
	cache     *prometheus.CounterVec

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		tasks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "task_outcomes_total",
			Help:      "Task outcomes by task type.",
		}, []string{"type", "outcome"}),
		taskDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "task_duration_seconds",
			Help:      "Handler run time per task attempt.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"type"}),
		scoringRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "runs_total",
			Help:      "Finished scoring runs by final status.",
		}, []string{"status"}),
		scoringValidators: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "validators_total",
			Help:      "Validators processed by scoring runs.",
		}, []string{"result"}),
		scoringDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "run_duration_seconds",
			Help:      "Wall time of a scoring run.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		rateLimit: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ratelimit",
			Name:      "decisions_total",
			Help:      "Rate limit decisions. degraded means the store was unreachable and the request was let through.",
		}, []string{"decision"}),
		cache: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Response cache lookups.",
		}, []string{"result"}),
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveTask(taskType, outcome string, duration time.Duration) {
	m.tasks.WithLabelValues(taskType, outcome).Inc()
	if duration > 0 {
		m.taskDuration.WithLabelValues(taskType).Observe(duration.Seconds())
	}
}

func (m *Metrics) ObserveScoringRun(status string, succeeded, failed int, duration time.Duration) {
	m.scoringRuns.WithLabelValues(status).Inc()
	m.scoringValidators.WithLabelValues("succeeded").Add(float64(succeeded))
	m.scoringValidators.WithLabelValues("failed").Add(float64(failed))
	m.scoringDuration.Observe(duration.Seconds())
}

func (m *Metrics) ObserveRateLimit(allowed, degraded bool) {
	switch {
	case degraded:
		m.rateLimit.WithLabelValues("degraded").Inc()
	case allowed:
		m.rateLimit.WithLabelValues("allowed").Inc()
	default:
		m.rateLimit.WithLabelValues("rejected").Inc()
	}
}

func (m *Metrics) ObserveCache(hit bool) {
	if hit {
		m.cache.WithLabelValues("hit").Inc()
		return
	}
	m.cache.WithLabelValues("miss").Inc()
}

// GinMiddleware records request counts and latency keyed by the matched route
// template, so path parameters do not explode label cardinality.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.requestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
