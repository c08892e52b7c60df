package queue

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

type TaskType string

const (
	TaskTypeFetch TaskType = "fetch"
	TaskTypeScore TaskType = "score"
)

func (t TaskType) Valid() bool {
	return t == TaskTypeFetch || t == TaskTypeScore
}

type State string

const (
	StateWaiting   State = "waiting"
	StateActive    State = "active"
	StateDelayed   State = "delayed"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Retention is how long a finished task's record is kept before the janitor purges it.
type Retention struct {
	KeepCompleted time.Duration
	KeepFailed    time.Duration
}

var DefaultRetention = Retention{
	KeepCompleted: time.Hour,
	KeepFailed:    24 * time.Hour,
}

// Task is the durable record of one unit of background work, stored as a Redis hash.
// Attempt counts deliveries that reached a handler.
type Task struct {
	ID           string
	Type         TaskType
	Payload      json.RawMessage
	State        State
	Priority     int
	Attempt      int
	MaxAttempts  int
	Backoff      time.Duration
	StalledCount int
	LastError    string
	RepeatID     string
	TraceID      string
	Retention    Retention
	CreatedAt    time.Time
	StartedAt    time.Time
	HeartbeatAt  time.Time
	FinishedAt   time.Time
}

// BackoffFor returns the delay before the attempt after the given one:
// Backoff × 2^(attempt−1).
func (t Task) BackoffFor(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 20 {
		attempt = 20
	}
	return t.Backoff * time.Duration(1<<(attempt-1))
}

func (t Task) Exhausted() bool {
	return t.Attempt >= t.MaxAttempts
}

func (t Task) fields() map[string]any {
	payload := string(t.Payload)
	if payload == "" {
		payload = "{}"
	}
	values := map[string]any{
		"type":              string(t.Type),
		"payload":           payload,
		"state":             string(t.State),
		"priority":          t.Priority,
		"attempt":           t.Attempt,
		"max_attempts":      t.MaxAttempts,
		"backoff_ms":        t.Backoff.Milliseconds(),
		"stalled_count":     t.StalledCount,
		"last_error":        t.LastError,
		"repeat_id":         t.RepeatID,
		"trace_id":          t.TraceID,
		"keep_completed_ms": t.Retention.KeepCompleted.Milliseconds(),
		"keep_failed_ms":    t.Retention.KeepFailed.Milliseconds(),
		"created_at":        unixMillis(t.CreatedAt),
	}
	return values
}

func parseTask(id string, values map[string]string) (Task, error) {
	if len(values) == 0 {
		return Task{}, fmt.Errorf("task %s: no record", id)
	}

	t := Task{
		ID:        id,
		Type:      TaskType(values["type"]),
		Payload:   json.RawMessage(values["payload"]),
		State:     State(values["state"]),
		LastError: values["last_error"],
		RepeatID:  values["repeat_id"],
		TraceID:   values["trace_id"],
	}
	if !t.Type.Valid() {
		return Task{}, fmt.Errorf("task %s: unknown type %q", id, t.Type)
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"priority", &t.Priority},
		{"attempt", &t.Attempt},
		{"max_attempts", &t.MaxAttempts},
		{"stalled_count", &t.StalledCount},
	}
	for _, f := range ints {
		n, err := optionalInt(values, f.key)
		if err != nil {
			return Task{}, fmt.Errorf("task %s: %w", id, err)
		}
		*f.dst = n
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"backoff_ms", &t.Backoff},
		{"keep_completed_ms", &t.Retention.KeepCompleted},
		{"keep_failed_ms", &t.Retention.KeepFailed},
	}
	for _, f := range durations {
		n, err := optionalInt64(values, f.key)
		if err != nil {
			return Task{}, fmt.Errorf("task %s: %w", id, err)
		}
		*f.dst = time.Duration(n) * time.Millisecond
	}

	times := []struct {
		key string
		dst *time.Time
	}{
		{"created_at", &t.CreatedAt},
		{"started_at", &t.StartedAt},
		{"heartbeat_at", &t.HeartbeatAt},
		{"finished_at", &t.FinishedAt},
	}
	for _, f := range times {
		n, err := optionalInt64(values, f.key)
		if err != nil {
			return Task{}, fmt.Errorf("task %s: %w", id, err)
		}
		if n > 0 {
			*f.dst = time.UnixMilli(n)
		}
	}

	return t, nil
}

func optionalInt(values map[string]string, key string) (int, error) {
	raw, ok := values[key]
	if !ok || raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return n, nil
}

func optionalInt64(values map[string]string, key string) (int64, error) {
	raw, ok := values[key]
	if !ok || raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return n, nil
}

func unixMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}
