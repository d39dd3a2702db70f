// Package locks serialises analyses per startup so that concurrent updates
// cannot interleave their read-merge-append sequences.
package locks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/miradorstack/realitycheck/internal/cache"
	"github.com/miradorstack/realitycheck/internal/models"
)

// Locker grants exclusive access to one startup's snapshot log.
type Locker interface {
	// Acquire blocks or fails according to the implementation; the returned
	// release func must be called exactly once.
	Acquire(ctx context.Context, startupID string) (release func(), err error)
}

// KeyedMutex is an in-process Locker. Callers for the same startup wait
// their turn; different startups never contend.
type KeyedMutex struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch      chan struct{}
	waiters int
}

// NewKeyedMutex constructs an empty KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{slots: make(map[string]*slot)}
}

// Acquire waits for the startup's slot or for ctx to end.
func (k *KeyedMutex) Acquire(ctx context.Context, startupID string) (func(), error) {
	k.mu.Lock()
	s, ok := k.slots[startupID]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		k.slots[startupID] = s
	}
	s.waiters++
	k.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		k.drop(startupID, s)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			k.drop(startupID, s)
		})
	}, nil
}

func (k *KeyedMutex) drop(startupID string, s *slot) {
	k.mu.Lock()
	defer k.mu.Unlock()
	s.waiters--
	if s.waiters == 0 {
		delete(k.slots, startupID)
	}
}

// CacheLocker holds a TTL lease in the cache provider so that several
// processes sharing a store also share the lock. A held lease is rejected
// immediately with models.ErrAnalysisInProgress.
type CacheLocker struct {
	provider cache.Provider
	ttl      time.Duration
	logger   *slog.Logger
}

// NewCacheLocker builds a CacheLocker; ttl bounds how long a crashed holder
// can block a startup.
func NewCacheLocker(provider cache.Provider, ttl time.Duration, logger *slog.Logger) *CacheLocker {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &CacheLocker{provider: provider, ttl: ttl, logger: logger}
}

// Acquire takes the lease or returns models.ErrAnalysisInProgress.
func (l *CacheLocker) Acquire(ctx context.Context, startupID string) (func(), error) {
	key := cache.Key("lock", startupID)
	token := []byte(uuid.NewString())

	ok, err := l.provider.SetNX(ctx, key, token, l.ttl)
	if err != nil {
		return nil, fmt.Errorf("acquire lock for %s: %w", startupID, err)
	}
	if !ok {
		return nil, fmt.Errorf("startup %s: %w", startupID, models.ErrAnalysisInProgress)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// Release must survive a cancelled request context.
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
			defer cancel()
			deleted, err := l.provider.DelIfEqual(releaseCtx, key, token)
			switch {
			case err != nil:
				l.logger.Warn("lock release failed", slog.String("startup_id", startupID), slog.Any("error", err))
			case !deleted:
				l.logger.Warn("lock lease expired before release", slog.String("startup_id", startupID))
			}
		})
	}, nil
}

// Chain acquires each locker in order and releases in reverse. It is used to
// pair the in-process queue with the cross-process lease.
type Chain []Locker

// Acquire takes every lock or none.
func (c Chain) Acquire(ctx context.Context, startupID string) (func(), error) {
	releases := make([]func(), 0, len(c))
	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
	for _, l := range c {
		release, err := l.Acquire(ctx, startupID)
		if err != nil {
			releaseAll()
			return nil, err
		}
		releases = append(releases, release)
	}
	return releaseAll, nil
}
