package quiz

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Cache stores remotely generated questions keyed by transcript hash.
type Cache interface {
	Get(ctx context.Context, key string) (Question, bool, error)
	Set(ctx context.Context, key string, q Question) error
}

// TranscriptKey is the cache key for a transcript.
func TranscriptKey(transcript string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(transcript)))
	return hex.EncodeToString(sum[:])
}

type memoryCache struct {
	mu    sync.Mutex
	max   int
	items map[string]Question
	order []string
}

// NewMemoryCache keeps at most max entries, evicting the oldest insert.
func NewMemoryCache(max int) Cache {
	if max <= 0 {
		max = 1024
	}
	return &memoryCache{max: max, items: make(map[string]Question, max)}
}

func (c *memoryCache) Get(_ context.Context, key string) (Question, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	q, ok := c.items[key]
	if !ok {
		return Question{}, false, nil
	}
	return q.Clone(), true, nil
}

func (c *memoryCache) Set(_ context.Context, key string, q Question) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[key]; !ok {
		if len(c.order) >= c.max {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.items, oldest)
		}
		c.order = append(c.order, key)
	}
	c.items[key] = q.Clone()
	return nil
}

type redisCache struct {
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache stores questions as JSON under prefix+key with ttl (0 keeps
// them forever).
func NewRedisCache(rdb *goredis.Client, prefix string, ttl time.Duration) Cache {
	if prefix == "" {
		prefix = "quiz:"
	}
	return &redisCache{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (c *redisCache) Get(ctx context.Context, key string) (Question, bool, error) {
	raw, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return Question{}, false, nil
	}
	if err != nil {
		return Question{}, false, fmt.Errorf("redis get: %w", err)
	}
	var q Question
	if err := json.Unmarshal(raw, &q); err != nil {
		return Question{}, false, fmt.Errorf("decode cached quiz: %w", err)
	}
	if err := q.Validate(); err != nil {
		return Question{}, false, err
	}
	return q, true, nil
}

func (c *redisCache) Set(ctx context.Context, key string, q Question) error {
	raw, err := json.Marshal(q)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.prefix+key, raw, c.ttl).Err()
}
