// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pdiddy/compliance-review/pkg/types"
)

const cacheKeyPrefix = "compliance-review:search:"

// DefaultMemoryCacheEntries bounds a MemoryCache.
const DefaultMemoryCacheEntries = 1024

// cacheKey derives a stable key for a (query, k) search.
func cacheKey(query string, k int) string {
	h := sha256.New()
	h.Write([]byte(query))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(k)))
	return cacheKeyPrefix + hex.EncodeToString(h.Sum(nil))
}

// MemoryCache is an in-process Cache with a fixed TTL and at most
// maxEntries entries. When full, expired entries are swept first and then
// the oldest insertion is evicted.
type MemoryCache struct {
	ttl        time.Duration
	maxEntries int
	now        func() time.Time

	mu      sync.Mutex
	seq     uint64
	entries map[string]memoryEntry
}

type memoryEntry struct {
	passages []types.RetrievedPassage
	expires  time.Time
	seq      uint64
}

// NewMemoryCache returns an empty MemoryCache holding up to
// DefaultMemoryCacheEntries entries. ttl <= 0 never expires.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl:        ttl,
		maxEntries: DefaultMemoryCacheEntries,
		now:        time.Now,
		entries:    make(map[string]memoryEntry),
	}
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Get returns a copy of the cached passages for key.
func (c *MemoryCache) Get(_ context.Context, key string) ([]types.RetrievedPassage, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if c.ttl > 0 && !c.now().Before(e.expires) {
		delete(c.entries, key)
		return nil, false, nil
	}
	return append([]types.RetrievedPassage(nil), e.passages...), true, nil
}

// Set stores a copy of passages under key.
func (c *MemoryCache) Set(_ context.Context, key string, passages []types.RetrievedPassage) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok && len(c.entries) >= c.maxEntries {
		c.makeRoom()
	}
	c.seq++
	c.entries[key] = memoryEntry{
		passages: append([]types.RetrievedPassage(nil), passages...),
		expires:  c.now().Add(c.ttl),
		seq:      c.seq,
	}
	return nil
}

// makeRoom drops expired entries, or the oldest entry when none expired.
// c.mu must be held.
func (c *MemoryCache) makeRoom() {
	if c.ttl > 0 {
		now := c.now()
		for k, e := range c.entries {
			if !now.Before(e.expires) {
				delete(c.entries, k)
			}
		}
	}
	if len(c.entries) < c.maxEntries {
		return
	}
	var oldestKey string
	var oldest uint64
	for k, e := range c.entries {
		if oldestKey == "" || e.seq < oldest {
			oldestKey, oldest = k, e.seq
		}
	}
	delete(c.entries, oldestKey)
}

// redisClient is the subset of *redis.Client used by RedisCache.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// RedisCache shares search results between processes through Redis.
// Entries are JSON encoded and expire after ttl.
type RedisCache struct {
	client redisClient
	ttl    time.Duration
}

// NewRedisCache connects to addr and verifies the connection with PING.
func NewRedisCache(ctx context.Context, addr, password string, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	return &RedisCache{client: client, ttl: ttl}, nil
}

// Get returns the cached passages for key. A missing key is a miss, not an
// error.
func (c *RedisCache) Get(ctx context.Context, key string) ([]types.RetrievedPassage, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var passages []types.RetrievedPassage
	if err := json.Unmarshal(data, &passages); err != nil {
		return nil, false, fmt.Errorf("decoding cached passages: %w", err)
	}
	return passages, true, nil
}

// Set stores passages under key with the cache TTL.
func (c *RedisCache) Set(ctx context.Context, key string, passages []types.RetrievedPassage) error {
	data, err := json.Marshal(passages)
	if err != nil {
		return fmt.Errorf("encoding passages: %w", err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close releases the Redis connection pool.
func (c *RedisCache) Close() error {
	if closer, ok := c.client.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
