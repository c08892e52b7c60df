package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// ResponseCache is the slice of the response cache read paths use.
type ResponseCache interface {
	Get(ctx context.Context, namespace, query string, variables any) (json.RawMessage, bool)
	Set(ctx context.Context, namespace, query string, variables, value any, ttl time.Duration) error
}

// readThrough serves from cache when possible and fills it after a successful load.
// A nil cache or an undecodable entry falls through to load.
func readThrough[T any](ctx context.Context, c ResponseCache, namespace, query string, vars any, ttl time.Duration, load func() (T, error)) (T, error) {
	if c != nil {
		if raw, ok := c.Get(ctx, namespace, query, vars); ok {
			var cached T
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
			slog.WarnContext(ctx, "discarding undecodable cache entry", "namespace", namespace, "query", query)
		}
	}

	v, err := load()
	if err != nil {
		return v, err
	}

	if c != nil {
		if err := c.Set(ctx, namespace, query, vars, v, ttl); err != nil {
			slog.WarnContext(ctx, "failed to cache response", "namespace", namespace, "query", query, "error", err)
		}
	}
	return v, nil
}
