package ratelimit

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// KeyFunc derives the client key for a request.
type KeyFunc func(c *gin.Context) string

// Middleware rejects requests over the limit with 429 and annotates every response
// with the caller's remaining budget.
func Middleware(l *Limiter, keyFn KeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		d := l.CheckAndAdmit(c.Request.Context(), keyFn(c))

		c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt((d.ResetTimeMs+999)/1000, 10))

		if !d.Allowed {
			c.Header("Retry-After", strconv.Itoa(d.RetryAfterSec))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":      "too many requests",
				"retryAfter": d.RetryAfterSec,
			})
			return
		}
		c.Next()
	}
}
