package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/SeunOnTech/sol-stake-backend/internal/auth"
	"github.com/SeunOnTech/sol-stake-backend/internal/ratelimit"
)

// RateLimitKey keys windows by client address and authenticated user. It must run
// after auth.Middleware.
func RateLimitKey(c *gin.Context) string {
	return ratelimit.Key(c.ClientIP(), auth.FromGin(c).UserID)
}
