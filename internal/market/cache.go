package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "price:v1:"

// Cache stores quotes for a bounded time.
type Cache interface {
	Get(ctx context.Context, symbol string) (Quote, bool, error)
	Set(ctx context.Context, q Quote, ttl time.Duration) error
}

// RedisCache keeps quotes in Redis and relies on key expiry for the TTL.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, symbol string) (Quote, bool, error) {
	raw, err := c.client.Get(ctx, cacheKeyPrefix+symbol).Bytes()
	if errors.Is(err, redis.Nil) {
		return Quote{}, false, nil
	}
	if err != nil {
		return Quote{}, false, fmt.Errorf("read cached quote: %w", err)
	}
	var q Quote
	if err := json.Unmarshal(raw, &q); err != nil {
		return Quote{}, false, fmt.Errorf("decode cached quote: %w", err)
	}
	return q, true, nil
}

func (c *RedisCache) Set(ctx context.Context, q Quote, ttl time.Duration) error {
	payload, err := json.Marshal(q)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheKeyPrefix+q.Symbol, payload, ttl).Err()
}

type cacheEntry struct {
	quote   Quote
	expires time.Time
}

// maxMemoryQuotes bounds MemoryCache; arbitrary symbols from the public price
// route would otherwise grow it forever.
const maxMemoryQuotes = 1024

// MemoryCache is an in-process Cache with an injectable clock.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	now     func() time.Time
}

func NewMemoryCache(now func() time.Time) *MemoryCache {
	if now == nil {
		now = time.Now
	}
	return &MemoryCache{entries: make(map[string]cacheEntry), now: now}
}

func (c *MemoryCache) Get(_ context.Context, symbol string) (Quote, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[symbol]
	if !ok {
		return Quote{}, false, nil
	}
	if !c.now().Before(entry.expires) {
		delete(c.entries, symbol)
		return Quote{}, false, nil
	}
	return entry.quote, true, nil
}

func (c *MemoryCache) Set(_ context.Context, q Quote, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if _, exists := c.entries[q.Symbol]; !exists && len(c.entries) >= maxMemoryQuotes {
		c.evictLocked(now)
	}
	c.entries[q.Symbol] = cacheEntry{quote: q, expires: now.Add(ttl)}
	return nil
}

// Len reports the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evictLocked drops expired entries, or the one closest to expiry when none
// have expired.
func (c *MemoryCache) evictLocked(now time.Time) {
	var (
		oldest    string
		oldestExp time.Time
	)
	for symbol, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, symbol)
			continue
		}
		if oldest == "" || e.expires.Before(oldestExp) {
			oldest, oldestExp = symbol, e.expires
		}
	}
	if len(c.entries) >= maxMemoryQuotes && oldest != "" {
		delete(c.entries, oldest)
	}
}
