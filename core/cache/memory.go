package cache

import (
	"context"
	"sync"
	"time"
)

type memoryItem struct {
	value     string
	expiresAt time.Time
}

func (i memoryItem) expired(now time.Time) bool {
	return !i.expiresAt.IsZero() && !now.Before(i.expiresAt)
}

// MemoryCache is the single-process Cache used when no redis address is configured.
type MemoryCache struct {
	mu    sync.Mutex
	items map[string]memoryItem
	now   func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: make(map[string]memoryItem), now: time.Now}
}

func (c *MemoryCache) deadline(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return c.now().Add(ttl)
}

func (c *MemoryCache) lookup(key string) (memoryItem, bool) {
	item, ok := c.items[key]
	if !ok {
		return memoryItem{}, false
	}
	if item.expired(c.now()) {
		delete(c.items, key)
		return memoryItem{}, false
	}
	return item, true
}

func (c *MemoryCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	item, ok := c.lookup(key)
	if !ok {
		return "", ErrCacheMiss
	}
	return item.value, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = memoryItem{value: value, expiresAt: c.deadline(ttl)}
	return nil
}

func (c *MemoryCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.items, k)
	}
	return nil
}

func (c *MemoryCache) Expire(_ context.Context, key string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if item, ok := c.lookup(key); ok {
		item.expiresAt = c.deadline(ttl)
		c.items[key] = item
	}
	return nil
}

func (c *MemoryCache) SetNX(_ context.Context, key string, value string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.lookup(key); ok {
		return false, nil
	}
	c.items[key] = memoryItem{value: value, expiresAt: c.deadline(ttl)}
	return true, nil
}

func (c *MemoryCache) CompareAndDelete(_ context.Context, key string, value string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	item, ok := c.lookup(key)
	if !ok || item.value != value {
		return false, nil
	}
	delete(c.items, key)
	return true, nil
}

func (c *MemoryCache) Close() error { return nil }
