package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/SeunOnTech/sol-stake-backend/common/fault"
	"github.com/SeunOnTech/sol-stake-backend/internal/auth"
	"github.com/SeunOnTech/sol-stake-backend/internal/cache"
	"github.com/SeunOnTech/sol-stake-backend/internal/http/handler"
	"github.com/SeunOnTech/sol-stake-backend/internal/model"
	"github.com/SeunOnTech/sol-stake-backend/internal/queue"
	"github.com/SeunOnTech/sol-stake-backend/internal/service"
)

var reader = auth.Identity{UserID: "u1", Permissions: []string{auth.PermReadValidators}, IsAuthenticated: true}

func serve(router *gin.Engine, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

var _ = Describe("ValidatorHandler", func() {
	var (
		router *gin.Engine
		svc    *mockValidatorService
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		router.Use(withIdentity(reader))
		svc = &mockValidatorService{}
		h := handler.NewValidatorHandler(svc)
		router.GET("/validators", h.List)
		router.GET("/validators/:pubkey", h.Get)
		router.GET("/validators/:pubkey/scores", h.Scores)
	})

	It("lists validators with paging passed through", func() {
		svc.listFn = func(_ context.Context, id auth.Identity, limit, offset int32) (*service.ValidatorPage, error) {
			Expect(id.UserID).To(Equal("u1"))
			Expect(limit).To(Equal(int32(10)))
			Expect(offset).To(Equal(int32(20)))
			return &service.ValidatorPage{
				Validators: []model.Validator{{ID: 5, Pubkey: "pk5", Uptime: 99}},
				Total:      1, Limit: limit, Offset: offset,
			}, nil
		}

		w := serve(router, http.MethodGet, "/validators?limit=10&offset=20", nil)

		Expect(w.Code).To(Equal(http.StatusOK))
		var resp map[string]any
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp["total"]).To(BeEquivalentTo(1))
		first := resp["validators"].([]any)[0].(map[string]any)
		Expect(first["id"]).To(Equal("5"))
		Expect(first["pubkey"]).To(Equal("pk5"))
	})

	It("rejects an out of range limit", func() {
		w := serve(router, http.MethodGet, "/validators?limit=1000", nil)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	DescribeTable("maps fault kinds to status codes",
		func(kind fault.Kind, status int) {
			svc.getFn = func(context.Context, auth.Identity, string) (*service.ValidatorDetail, error) {
				return nil, fault.New(kind, "test", errors.New("boom"))
			}
			w := serve(router, http.MethodGet, "/validators/pk1", nil)
			Expect(w.Code).To(Equal(status))
		},
		Entry("not authenticated", fault.KindNotAuthenticated, http.StatusUnauthorized),
		Entry("not authorized", fault.KindNotAuthorized, http.StatusForbidden),
		Entry("not found", fault.KindNotFound, http.StatusNotFound),
		Entry("persistence unavailable", fault.KindPersistenceUnavailable, http.StatusServiceUnavailable),
		Entry("unknown", fault.KindUnknown, http.StatusInternalServerError),
	)

	It("returns the score history", func() {
		svc.scoresFn = func(_ context.Context, _ auth.Identity, pubkey string, limit int32) ([]model.Score, error) {
			Expect(pubkey).To(Equal("pk1"))
			Expect(limit).To(Equal(int32(5)))
			return []model.Score{{ID: 1, Value: 90}}, nil
		}

		w := serve(router, http.MethodGet, "/validators/pk1/scores?limit=5", nil)
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring(`"value":90`))
	})

	It("rejects a malformed limit on score history", func() {
		w := serve(router, http.MethodGet, "/validators/pk1/scores?limit=abc", nil)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})
})

var _ = Describe("RunHandler", func() {
	var (
		router *gin.Engine
		svc    *mockRunService
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		router.Use(withIdentity(reader))
		svc = &mockRunService{}
		h := handler.NewRunHandler(svc)
		router.GET("/runs", h.List)
		router.GET("/runs/:id", h.Get)
	})

	It("returns a run with its score count", func() {
		svc.getFn = func(_ context.Context, _ auth.Identity, runID int64) (*service.RunDetail, error) {
			return &service.RunDetail{
				Run:        model.ScoringRun{ID: runID, Status: model.ScoringRunStatusCompleted, Attempted: 2, Succeeded: 2},
				ScoreCount: 2,
			}, nil
		}

		w := serve(router, http.MethodGet, "/runs/77", nil)
		Expect(w.Code).To(Equal(http.StatusOK))
		var resp map[string]any
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp["id"]).To(Equal("77"))
		Expect(resp["status"]).To(Equal("completed"))
		Expect(resp["score_count"]).To(BeEquivalentTo(2))
	})

	It("rejects a non-numeric run id", func() {
		w := serve(router, http.MethodGet, "/runs/abc", nil)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})
})

var _ = Describe("AdminHandler", func() {
	var (
		router *gin.Engine
		svc    *mockAdminService
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		svc = &mockAdminService{}
		h := handler.NewAdminHandler(svc)
		router.POST("/admin/cache/clear", h.ClearCache)
		router.DELETE("/admin/rate-limits/:key", h.ResetRateLimit)
		router.POST("/admin/jobs", h.EnqueueJob)
	})

	It("returns the clear result", func() {
		svc.clearCacheFn = func(context.Context, auth.Identity) (*service.CacheActionResult, error) {
			return &service.CacheActionResult{Success: true, Message: "cleared 3 cache entries", Keys: 3}, nil
		}

		w := serve(router, http.MethodPost, "/admin/cache/clear", nil)
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring(`"success":true`))
	})

	It("returns 403 when the caller lacks admin:system", func() {
		svc.clearCacheFn = func(context.Context, auth.Identity) (*service.CacheActionResult, error) {
			return nil, fault.New(fault.KindNotAuthorized, "auth.require_permission", nil)
		}

		w := serve(router, http.MethodPost, "/admin/cache/clear", nil)
		Expect(w.Code).To(Equal(http.StatusForbidden))
	})

	It("passes the rate limit key from the path", func() {
		var got string
		svc.resetRateLimitFn = func(_ context.Context, _ auth.Identity, key string) error {
			got = key
			return nil
		}

		w := serve(router, http.MethodDelete, "/admin/rate-limits/10.0.0.1:anonymous", nil)
		Expect(w.Code).To(Equal(http.StatusNoContent))
		Expect(got).To(Equal("10.0.0.1:anonymous"))
	})

	It("enqueues a job", func() {
		svc.enqueueJobFn = func(_ context.Context, _ auth.Identity, taskType queue.TaskType, opts queue.EnqueueOptions) (queue.TaskHandle, error) {
			Expect(taskType).To(Equal(queue.TaskTypeFetch))
			Expect(opts.Priority).To(Equal(1))
			return queue.TaskHandle{ID: "42", Type: taskType, State: queue.StateWaiting}, nil
		}

		body, _ := json.Marshal(map[string]any{"type": "fetch", "priority": 1})
		w := serve(router, http.MethodPost, "/admin/jobs", body)

		Expect(w.Code).To(Equal(http.StatusAccepted))
		Expect(w.Body.String()).To(ContainSubstring(`"id":"42"`))
	})

	It("rejects an unknown job type at binding", func() {
		body, _ := json.Marshal(map[string]any{"type": "reindex"})
		w := serve(router, http.MethodPost, "/admin/jobs", body)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})
})

var _ = Describe("HealthHandler", func() {
	var svc *mockAdminService

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		svc = &mockAdminService{}
	})

	route := func(deps map[string]handler.Pinger) *gin.Engine {
		router := gin.New()
		h := handler.NewHealthHandler(svc, deps)
		router.GET("/health", h.Health)
		router.GET("/health/cache", h.Cache)
		return router
	}

	It("is ok when every dependency answers", func() {
		w := serve(route(map[string]handler.Pinger{"database": mockPinger{}, "redis": mockPinger{}}), http.MethodGet, "/health", nil)
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring(`"status":"ok"`))
	})

	It("is degraded when a dependency is down", func() {
		w := serve(route(map[string]handler.Pinger{"database": mockPinger{err: errors.New("down")}}), http.MethodGet, "/health", nil)
		Expect(w.Code).To(Equal(http.StatusServiceUnavailable))
		Expect(w.Body.String()).To(ContainSubstring(`"database":"down"`))
	})

	It("reports cache statistics", func() {
		svc.cacheStatsFn = func(context.Context) (cache.Stats, error) {
			return cache.Stats{TotalKeys: 4, MemoryUsage: "1.05M", HitRate: 0.75}, nil
		}

		w := serve(route(nil), http.MethodGet, "/health/cache", nil)
		Expect(w.Code).To(Equal(http.StatusOK))
		var resp map[string]any
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp["totalKeys"]).To(BeEquivalentTo(4))
		Expect(resp["memoryUsage"]).To(Equal("1.05M"))
		Expect(resp["hitRate"]).To(BeEquivalentTo(0.75))
	})
})
