// Package cache stores serialized read responses in Redis keyed by a digest of the
// query and its variables. A store failure is a miss, never an error.
package cache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SeunOnTech/sol-stake-backend/common/fault"
)

const (
	keyPrefix = "cache:"
	scanCount = 500

	NamespaceValidators = "validators"
	NamespaceRuns       = "runs"
)

type Config struct {
	DefaultTTL time.Duration
}

type Observer interface {
	ObserveCache(hit bool)
}

type Cache struct {
	client   *redis.Client
	ttl      time.Duration
	observer Observer
	hits     atomic.Int64
	misses   atomic.Int64
}

// New builds a Cache. observer may be nil.
func New(client *redis.Client, cfg Config, observer Observer) *Cache {
	ttl := cfg.DefaultTTL
	if ttl <= 0 {
		ttl = 300 * time.Second
	}
	return &Cache{client: client, ttl: ttl, observer: observer}
}

// Key is cache:<namespace>:<hex sha256 of query followed by canonical JSON variables>.
func Key(namespace, query string, variables any) (string, error) {
	canonical, err := canonicalJSON(variables)
	if err != nil {
		return "", fmt.Errorf("encoding cache variables: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(query))
	h.Write(canonical)
	return keyPrefix + namespace + ":" + hex.EncodeToString(h.Sum(nil)), nil
}

// canonicalJSON re-encodes v through a generic value so object keys come out sorted
// no matter how v was built.
func canonicalJSON(v any) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}

// Get returns the cached payload, if any.
func (c *Cache) Get(ctx context.Context, namespace, query string, variables any) (json.RawMessage, bool) {
	key, err := Key(namespace, query, variables)
	if err != nil {
		c.record(false)
		return nil, false
	}

	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.WarnContext(ctx, "cache read failed, treating as miss",
				"namespace", namespace,
				"error", fault.New(fault.KindCacheUnavailable, "cache.get", err))
		}
		c.record(false)
		return nil, false
	}
	c.record(true)
	return raw, true
}

// Set stores value under the query's key. ttl <= 0 uses the default. Store failures
// are logged and dropped; only an unencodable value is returned as an error.
func (c *Cache) Set(ctx context.Context, namespace, query string, variables, value any, ttl time.Duration) error {
	key, err := Key(namespace, query, variables)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding cache value: %w", err)
	}
	if ttl <= 0 {
		ttl = c.ttl
	}
	if err := c.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		slog.WarnContext(ctx, "cache write failed",
			"namespace", namespace,
			"error", fault.New(fault.KindCacheUnavailable, "cache.set", err))
	}
	return nil
}

// Invalidate removes every key matching cache:<pattern> with one UNLINK, so none of
// them can be read once it returns.
func (c *Cache) Invalidate(ctx context.Context, pattern string) (int, error) {
	var keys []string
	iter := c.client.Scan(ctx, 0, keyPrefix+pattern, scanCount).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, fault.New(fault.KindCacheUnavailable, "cache.invalidate", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	n, err := c.client.Unlink(ctx, keys...).Result()
	if err != nil {
		return 0, fault.New(fault.KindCacheUnavailable, "cache.invalidate", err)
	}
	slog.InfoContext(ctx, "cache invalidated", "pattern", pattern, "keys", n)
	return int(n), nil
}

func (c *Cache) ClearAll(ctx context.Context) (int, error) {
	return c.Invalidate(ctx, "*")
}

// InvalidateValidatorCache drops cached validator reads after new data lands.
func (c *Cache) InvalidateValidatorCache(ctx context.Context) (int, error) {
	return c.Invalidate(ctx, NamespaceValidators+":*")
}

func (c *Cache) record(hit bool) {
	if hit {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	if c.observer != nil {
		c.observer.ObserveCache(hit)
	}
}

// Stats describes the cache as seen from this process. HitRate is local to it.
type Stats struct {
	TotalKeys   int     `json:"totalKeys"`
	MemoryUsage string  `json:"memoryUsage"`
	HitRate     float64 `json:"hitRate"`
	Hits        int64   `json:"hits"`
	Misses      int64   `json:"misses"`
}

func (c *Cache) Stats(ctx context.Context) (Stats, error) {
	hits, misses := c.hits.Load(), c.misses.Load()
	s := Stats{MemoryUsage: "unknown", Hits: hits, Misses: misses}
	if total := hits + misses; total > 0 {
		s.HitRate = float64(hits) / float64(total)
	}

	iter := c.client.Scan(ctx, 0, keyPrefix+"*", scanCount).Iterator()
	for iter.Next(ctx) {
		s.TotalKeys++
	}
	if err := iter.Err(); err != nil {
		return s, fault.New(fault.KindCacheUnavailable, "cache.stats", err)
	}

	if info, err := c.client.Info(ctx, "memory").Result(); err == nil {
		if v, ok := infoField(info, "used_memory_human"); ok {
			s.MemoryUsage = v
		}
	}
	return s, nil
}

// Ping reports whether the store answers.
func (c *Cache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fault.New(fault.KindCacheUnavailable, "cache.ping", err)
	}
	return nil
}

func infoField(info, field string) (string, bool) {
	for _, line := range strings.Split(info, "\n") {
		k, v, ok := strings.Cut(strings.TrimSpace(line), ":")
		if ok && k == field {
			return v, true
		}
	}
	return "", false
}
