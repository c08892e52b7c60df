package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SeunOnTech/sol-stake-backend/internal/queue"
)

// Registration is a repeatable job as stored in the registry hash.
type Registration struct {
	ID              string         `json:"id"`
	Type            queue.TaskType `json:"type"`
	Preset          Preset         `json:"preset"`
	EveryMs         int64          `json:"every_ms"`
	KeepCompletedMs int64          `json:"keep_completed_ms"`
	KeepFailedMs    int64          `json:"keep_failed_ms"`
	RegisteredAt    time.Time      `json:"registered_at"`
}

func (r Registration) Every() time.Duration {
	return time.Duration(r.EveryMs) * time.Millisecond
}

func (r Registration) Retention() queue.Retention {
	return queue.Retention{
		KeepCompleted: time.Duration(r.KeepCompletedMs) * time.Millisecond,
		KeepFailed:    time.Duration(r.KeepFailedMs) * time.Millisecond,
	}
}

// Registry stores at most one registration per repeatable id in a single Redis hash.
type Registry struct {
	client *redis.Client
	key    string
	now    func() time.Time
}

func NewRegistry(client *redis.Client, prefix string) *Registry {
	if prefix == "" {
		prefix = "ssb"
	}
	return &Registry{client: client, key: prefix + ":repeatable", now: time.Now}
}

// Setup replaces the fetch and score registrations with the preset's. Running it
// again with any preset never leaves more than one registration per job type.
func (r *Registry) Setup(ctx context.Context, preset Preset) ([]Registration, error) {
	specs, err := PresetJobs(preset)
	if err != nil {
		return nil, err
	}

	now := r.now()
	regs := make([]Registration, 0, len(specs))
	values := make(map[string]any, len(specs))
	ids := make([]string, 0, len(specs))
	for _, s := range specs {
		reg := Registration{
			ID:              s.ID,
			Type:            s.Type,
			Preset:          preset,
			EveryMs:         s.Every.Milliseconds(),
			KeepCompletedMs: s.Retention.KeepCompleted.Milliseconds(),
			KeepFailedMs:    s.Retention.KeepFailed.Milliseconds(),
			RegisteredAt:    now,
		}
		raw, err := json.Marshal(reg)
		if err != nil {
			return nil, fmt.Errorf("encoding registration %s: %w", s.ID, err)
		}
		regs = append(regs, reg)
		values[s.ID] = string(raw)
		ids = append(ids, s.ID)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, r.key, ids...)
		pipe.HSet(ctx, r.key, values)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("registering preset %s: %w", preset, err)
	}

	slog.InfoContext(ctx, "repeatable jobs registered", "preset", preset, "count", len(regs))
	return regs, nil
}

func (r *Registry) List(ctx context.Context) ([]Registration, error) {
	raw, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("listing repeatable jobs: %w", err)
	}

	regs := make([]Registration, 0, len(raw))
	for id, value := range raw {
		var reg Registration
		if err := json.Unmarshal([]byte(value), &reg); err != nil {
			slog.WarnContext(ctx, "skipping unreadable registration", "id", id, "error", err)
			continue
		}
		regs = append(regs, reg)
	}
	sort.Slice(regs, func(i, j int) bool { return regs[i].ID < regs[j].ID })
	return regs, nil
}

// RemoveAll drops every registration and returns how many there were.
func (r *Registry) RemoveAll(ctx context.Context) (int, error) {
	var count *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		count = pipe.HLen(ctx, r.key)
		pipe.Del(ctx, r.key)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("removing repeatable jobs: %w", err)
	}
	return int(count.Val()), nil
}
