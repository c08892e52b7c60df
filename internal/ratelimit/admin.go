package ratelimit

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"
)

const scanCount = 500

// Window is one client key's current window.
type Window struct {
	Key      string `json:"key"`
	Requests int64  `json:"requests"`
	TTLMs    int64  `json:"ttlMs"`
}

type Stats struct {
	TotalKeys     int   `json:"totalKeys"`
	TotalRequests int64 `json:"totalRequests"`
	// AveragePerKey is TotalRequests over TotalKeys, zero when there are no keys.
	AveragePerKey float64 `json:"averagePerKey"`
	WindowMs      int64   `json:"windowMs"`
	MaxRequests   int     `json:"maxRequests"`
}

// Reset forgets the recorded requests for one client key.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("resetting %s: %w", key, err)
	}
	return nil
}

func (l *Limiter) List(ctx context.Context) ([]Window, error) {
	keys, err := l.scan(ctx)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return []Window{}, nil
	}

	counts := make([]*redis.IntCmd, len(keys))
	ttls := make([]*redis.DurationCmd, len(keys))
	_, err = l.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, k := range keys {
			counts[i] = pipe.ZCard(ctx, k)
			ttls[i] = pipe.PTTL(ctx, k)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading windows: %w", err)
	}

	out := make([]Window, 0, len(keys))
	for i, k := range keys {
		if counts[i].Val() == 0 {
			continue
		}
		out = append(out, Window{
			Key:      strings.TrimPrefix(k, keyPrefix),
			Requests: counts[i].Val(),
			TTLMs:    ttls[i].Val().Milliseconds(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// ClearAll drops every window and returns how many keys were removed.
func (l *Limiter) ClearAll(ctx context.Context) (int, error) {
	keys, err := l.scan(ctx)
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := l.client.Unlink(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("clearing windows: %w", err)
	}
	return int(n), nil
}

func (l *Limiter) Stats(ctx context.Context) (Stats, error) {
	windows, err := l.List(ctx)
	if err != nil {
		return Stats{}, err
	}
	s := Stats{
		TotalKeys:   len(windows),
		WindowMs:    l.cfg.Window.Milliseconds(),
		MaxRequests: l.cfg.MaxRequests,
	}
	for _, w := range windows {
		s.TotalRequests += w.Requests
	}
	if s.TotalKeys > 0 {
		s.AveragePerKey = float64(s.TotalRequests) / float64(s.TotalKeys)
	}
	return s, nil
}

func (l *Limiter) scan(ctx context.Context) ([]string, error) {
	var keys []string
	iter := l.client.Scan(ctx, 0, keyPrefix+"*", scanCount).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scanning rate limit keys: %w", err)
	}
	return keys, nil
}
