package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SeunOnTech/sol-stake-backend/internal/service"
)

const probeTimeout = 2 * time.Second

// Pinger is a dependency the liveness probe checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	adminService service.AdminService
	deps         map[string]Pinger
}

func NewHealthHandler(adminService service.AdminService, deps map[string]Pinger) *HealthHandler {
	return &HealthHandler{adminService: adminService, deps: deps}
}

// Health reports ok only when every dependency answers.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
	defer cancel()

	checks := make(map[string]string, len(h.deps))
	healthy := true
	for name, dep := range h.deps {
		if err := dep.Ping(ctx); err != nil {
			checks[name] = "down"
			healthy = false
			continue
		}
		checks[name] = "up"
	}

	status, code := "ok", http.StatusOK
	if !healthy {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":    status,
		"checks":    checks,
		"timestamp": time.Now().UTC(),
	})
}

func (h *HealthHandler) Cache(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
	defer cancel()

	stats, err := h.adminService.CacheStats(ctx)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":      "unavailable",
			"totalKeys":   0,
			"memoryUsage": "unknown",
			"hitRate":     stats.HitRate,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"totalKeys":   stats.TotalKeys,
		"memoryUsage": stats.MemoryUsage,
		"hitRate":     stats.HitRate,
	})
}
