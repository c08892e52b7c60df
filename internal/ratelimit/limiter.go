// Package ratelimit admits or rejects requests per client key over a sliding window
// kept in Redis.
package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/SeunOnTech/sol-stake-backend/common/fault"
)

const keyPrefix = "ratelimit:"

// admitScript trims the window, admits when under the limit, and returns
// {allowed, remaining, reset_ms} in one atomic step.
var admitScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, '-inf', '(' .. (now - window))
local count = redis.call('ZCARD', key)
local allowed = 0
if count < limit then
  redis.call('ZADD', key, now, member)
  redis.call('PEXPIRE', key, window)
  count = count + 1
  allowed = 1
end

local reset = now + window
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
if oldest[2] then
  reset = tonumber(oldest[2]) + window
end

local remaining = limit - count
if remaining < 0 then
  remaining = 0
end
return {allowed, remaining, reset}
`)

type Config struct {
	Window      time.Duration
	MaxRequests int
}

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed       bool
	Limit         int
	Remaining     int
	ResetTimeMs   int64
	RetryAfterSec int
	// Degraded is set when the store could not be consulted and the request was
	// admitted anyway.
	Degraded bool
}

type Observer interface {
	ObserveRateLimit(allowed, degraded bool)
}

type Limiter struct {
	client   *redis.Client
	cfg      Config
	observer Observer
	now      func() time.Time
}

// New builds a Limiter. observer may be nil.
func New(client *redis.Client, cfg Config, observer Observer) *Limiter {
	if cfg.Window <= 0 {
		cfg.Window = 15 * time.Minute
	}
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = 100
	}
	return &Limiter{client: client, cfg: cfg, observer: observer, now: time.Now}
}

// Key builds the client key from the caller's address and identity.
func Key(ip, identity string) string {
	if identity == "" {
		identity = "anonymous"
	}
	return ip + ":" + identity
}

// CheckAndAdmit records the request if the key is under its limit. Store errors
// admit the request.
func (l *Limiter) CheckAndAdmit(ctx context.Context, key string) Decision {
	now := l.now().UnixMilli()
	window := l.cfg.Window.Milliseconds()

	res, err := admitScript.Run(ctx, l.client,
		[]string{keyPrefix + key},
		now, window, l.cfg.MaxRequests, fmt.Sprintf("%d-%s", now, uuid.NewString()),
	).Int64Slice()
	if err == nil && len(res) != 3 {
		err = fmt.Errorf("unexpected script reply of length %d", len(res))
	}
	if err != nil {
		slog.WarnContext(ctx, "rate limit store unavailable, admitting request",
			"key", key,
			"error", fault.New(fault.KindRateLimitStoreUnavailable, "ratelimit.check", err))
		d := Decision{
			Allowed:     true,
			Limit:       l.cfg.MaxRequests,
			Remaining:   l.cfg.MaxRequests,
			ResetTimeMs: now + window,
			Degraded:    true,
		}
		l.observe(d)
		return d
	}

	d := Decision{
		Allowed:     res[0] == 1,
		Limit:       l.cfg.MaxRequests,
		Remaining:   int(res[1]),
		ResetTimeMs: res[2],
	}
	if !d.Allowed {
		wait := d.ResetTimeMs - now
		d.RetryAfterSec = int((wait + 999) / 1000)
		if d.RetryAfterSec < 1 {
			d.RetryAfterSec = 1
		}
	}
	l.observe(d)
	return d
}

func (l *Limiter) observe(d Decision) {
	if l.observer != nil {
		l.observer.ObserveRateLimit(d.Allowed, d.Degraded)
	}
}
