package auth

import (
	"context"

	"github.com/gin-gonic/gin"
)

type contextKey string

const identityContextKey contextKey = "identity"

// Middleware attaches the caller identity to the request context. It never aborts;
// handlers decide what the identity may do.
func Middleware(v *Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := v.FromHeader(c.GetHeader("Authorization"))
		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

// FromContext returns the identity Middleware attached, or Anonymous.
func FromContext(ctx context.Context) Identity {
	id, _ := ctx.Value(identityContextKey).(Identity)
	return id
}

func FromGin(c *gin.Context) Identity {
	return FromContext(c.Request.Context())
}
