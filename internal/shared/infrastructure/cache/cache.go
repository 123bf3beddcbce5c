// Package cache provides a single namespaced, TTL-aware key-value
// abstraction shared by every short-lived store in the system: the LLM
// response cache, the user-context cache, the conversation hot-state store,
// and the scheduling idempotency cache. Callers get isolation through the
// namespace prefix passed to New, not through separate implementations.
package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when a key does not exist or has expired.
var ErrNotFound = errors.New("cache: key not found")

// Cache is the narrow get/setex/delete contract every TTL-backed store in
// the system is built on.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetEX(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// RedisCache is a namespaced Cache backed by go-redis, grounded on the
// namespaced Redis key-value pattern used for orbit storage scoping.
type RedisCache struct {
	client    *redis.Client
	namespace string
}

// NewRedisCache returns a Cache whose keys are prefixed with namespace + ":".
func NewRedisCache(client *redis.Client, namespace string) *RedisCache {
	return &RedisCache{client: client, namespace: namespace}
}

func (c *RedisCache) key(k string) string {
	return c.namespace + ":" + k
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

func (c *RedisCache) SetEX(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, c.key(key), value, ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.key(key)).Err()
}

func (c *RedisCache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Exists(ctx, c.key(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type inMemoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// InMemoryCache is a process-local Cache with a background sweeper, used in
// local/CLI mode where no Redis is configured and in tests.
type InMemoryCache struct {
	mu      sync.RWMutex
	data    map[string]inMemoryEntry
	namespace string
}

// NewInMemoryCache creates an in-memory cache and starts its sweeper, which
// stops when ctx is cancelled.
func NewInMemoryCache(ctx context.Context, namespace string, sweepInterval time.Duration) *InMemoryCache {
	c := &InMemoryCache{
		data:      make(map[string]inMemoryEntry),
		namespace: namespace,
	}
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}
	go c.sweepLoop(ctx, sweepInterval)
	return c
}

func (c *InMemoryCache) key(k string) string {
	return c.namespace + ":" + k
}

func (c *InMemoryCache) sweepLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *InMemoryCache) sweep() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.data {
		if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
			delete(c.data, k)
		}
	}
}

func (c *InMemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.data[c.key(key)]
	if !ok {
		return nil, ErrNotFound
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		return nil, ErrNotFound
	}
	return e.value, nil
}

func (c *InMemoryCache) SetEX(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	c.data[c.key(key)] = inMemoryEntry{value: value, expiresAt: exp}
	return nil
}

func (c *InMemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, c.key(key))
	return nil
}

func (c *InMemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	_, err := c.Get(ctx, key)
	if err != nil {
		return false, nil
	}
	return true, nil
}
