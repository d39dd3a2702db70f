// Package cache provides an in-process TTL key/value store with the same
// semantics as the Valkey commands realitycheck relies on (GET, SET PX,
// SET NX PX, compare-and-delete).
package cache

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"
)

// ErrMiss signals that a key is absent or expired.
var ErrMiss = errors.New("cache miss")

// MemoryCache is a mutex-guarded map with lazy expiry.
type MemoryCache struct {
	mu   sync.Mutex
	data map[string]item
	now  func() time.Time
}

type item struct {
	value     []byte
	expiresAt time.Time
}

func (it item) expired(now time.Time) bool {
	return !it.expiresAt.IsZero() && !now.Before(it.expiresAt)
}

// NewMemoryCache creates an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{data: make(map[string]item), now: time.Now}
}

// Get returns a copy of the value stored under key.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, ok := c.lookup(key)
	if !ok {
		return nil, ErrMiss
	}
	return bytes.Clone(it.value), nil
}

// Set stores value with an optional TTL.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = c.newItem(value, ttl)
	return nil
}

// SetNX stores value only when key is absent or expired.
func (c *MemoryCache) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.lookup(key); ok {
		return false, nil
	}
	c.data[key] = c.newItem(value, ttl)
	return true, nil
}

// DelIfEqual removes key while it still holds value.
func (c *MemoryCache) DelIfEqual(_ context.Context, key string, value []byte) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, ok := c.lookup(key)
	if !ok || !bytes.Equal(it.value, value) {
		return false, nil
	}
	delete(c.data, key)
	return true, nil
}

// Del removes an entry.
func (c *MemoryCache) Del(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

// Close drops every entry.
func (c *MemoryCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.data)
	return nil
}

// lookup must be called with mu held.
func (c *MemoryCache) lookup(key string) (item, bool) {
	it, ok := c.data[key]
	if !ok {
		return item{}, false
	}
	if it.expired(c.now()) {
		delete(c.data, key)
		return item{}, false
	}
	return it, true
}

func (c *MemoryCache) newItem(value []byte, ttl time.Duration) item {
	it := item{value: bytes.Clone(value)}
	if ttl > 0 {
		it.expiresAt = c.now().Add(ttl)
	}
	return it
}
