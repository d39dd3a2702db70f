package cache

import (
	"context"
	"time"

	memcache "github.com/miradorstack/realitycheck/pkg/cache"
)

// Provider is the key/value surface used for the latest-snapshot cache and
// the cross-process analysis lock.
type Provider interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// SetNX stores value only when key is absent and reports whether it did.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	// DelIfEqual removes key only while it still holds value.
	DelIfEqual(ctx context.Context, key string, value []byte) (bool, error)
	Del(ctx context.Context, key string) error
	Close() error
}

// ErrCacheMiss signals that a cache key was not found.
var ErrCacheMiss = memcache.ErrMiss

// NewMemoryProvider returns an in-process Provider for single-node setups and tests.
func NewMemoryProvider() Provider {
	return memcache.NewMemoryCache()
}

// NoopProvider implements Provider but never stores data. SetNX always
// succeeds, so locks built on it never contend.
type NoopProvider struct{}

// Get always returns ErrCacheMiss.
func (NoopProvider) Get(context.Context, string) ([]byte, error) {
	return nil, ErrCacheMiss
}

// Set discards the value and returns nil.
func (NoopProvider) Set(context.Context, string, []byte, time.Duration) error {
	return nil
}

// SetNX pretends to store the value and reports success.
func (NoopProvider) SetNX(context.Context, string, []byte, time.Duration) (bool, error) {
	return true, nil
}

// DelIfEqual reports success without doing anything.
func (NoopProvider) DelIfEqual(context.Context, string, []byte) (bool, error) {
	return true, nil
}

// Del is a no-op for the noop cache.
func (NoopProvider) Del(context.Context, string) error { return nil }

// Close is a no-op.
func (NoopProvider) Close() error { return nil }

// Key joins a namespace and parts into a cache key ("realitycheck:latest:acme").
func Key(parts ...string) string {
	key := "realitycheck"
	for _, p := range parts {
		key += ":" + p
	}
	return key
}
