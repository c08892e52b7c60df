package queue

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SeunOnTech/sol-stake-backend/common/logger"
)

const promoteBatch = 100

// promoteScript claims one due id from the delayed set and puts it on its stream in a
// single step, so a failure can never leave the id outside every index. It reads only
// the priority field; a record that does not decode is left for the consumer to fail.
// Returns 1 when promoted, 0 when another promoter got there first, -1 when the
// record is gone.
var promoteScript = redis.NewScript(`
local delayed = KEYS[1]
local task = KEYS[2]
local id = ARGV[1]

if redis.call('ZREM', delayed, id) == 0 then
  return 0
end
if redis.call('EXISTS', task) == 0 then
  return -1
end

local priority = tonumber(redis.call('HGET', task, 'priority') or '0') or 0
local stream = KEYS[3]
if priority > 0 then
  stream = KEYS[4]
end
redis.call('HSET', task, 'state', ARGV[2])
redis.call('XADD', stream, '*', 'task_id', id)
return 1
`)

// Promoter moves delayed tasks whose due time has passed back onto their stream.
// Claim and enqueue happen atomically, so concurrent promoters never enqueue a task
// twice and an error never strands one.
type Promoter struct {
	client *redis.Client
	keys   Keys
	now    func() time.Time
}

func NewPromoter(client *redis.Client, keys Keys) *Promoter {
	return &Promoter{client: client, keys: keys, now: time.Now}
}

func (p *Promoter) PromoteDue(ctx context.Context) (int, error) {
	ids, err := p.client.ZRangeByScore(ctx, p.keys.Delayed(), &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(p.now().UnixMilli(), 10),
		Count: promoteBatch,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("listing due tasks: %w", err)
	}

	promoted := 0
	for _, id := range ids {
		res, err := promoteScript.Run(ctx, p.client,
			[]string{p.keys.Delayed(), p.keys.Task(id), p.keys.Stream(), p.keys.PriorityStream()},
			id, string(StateWaiting),
		).Int64()
		if err != nil {
			return promoted, fmt.Errorf("promoting task %s: %w", id, err)
		}
		switch res {
		case 1:
			promoted++
		case -1:
			slog.WarnContext(ctx, "delayed task record is gone, skipping", "task_id", id)
		}
	}
	return promoted, nil
}

func (p *Promoter) Run(ctx context.Context, interval time.Duration) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "ssb.queue.promoter"})
	runEvery(ctx, interval, func(ctx context.Context) {
		n, err := p.PromoteDue(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "promote cycle error", "error", err)
		}
		if n > 0 {
			slog.DebugContext(ctx, "promoted delayed tasks", "count", n)
		}
	})
}

func runEvery(ctx context.Context, interval time.Duration, fn func(ctx context.Context)) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}
