package repo

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/miradorstack/realitycheck/internal/cache"
	"github.com/miradorstack/realitycheck/internal/models"
)

// CachedStore fronts Latest with a cache.Provider. Append invalidates the
// cached entry once the underlying write succeeds.
type CachedStore struct {
	Store
	cache     cache.Provider
	latestTTL time.Duration
	logger    *slog.Logger
}

// NewCachedStore wraps store. A nil provider disables caching.
func NewCachedStore(store Store, provider cache.Provider, latestTTL time.Duration, logger *slog.Logger) *CachedStore {
	if provider == nil {
		provider = cache.NoopProvider{}
	}
	if latestTTL < 0 {
		latestTTL = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedStore{Store: store, cache: provider, latestTTL: latestTTL, logger: logger}
}

// Latest serves from cache when possible and populates it on a miss. A
// startup without snapshots is not cached.
func (s *CachedStore) Latest(ctx context.Context, startupID string) (*models.StartupSnapshot, error) {
	key := latestKey(startupID)
	if payload, err := s.cache.Get(ctx, key); err == nil {
		var cached models.StartupSnapshot
		if err := json.Unmarshal(payload, &cached); err == nil {
			return &cached, nil
		}
	}

	latest, err := s.Store.Latest(ctx, startupID)
	if err != nil || latest == nil {
		return latest, err
	}
	if payload, err := json.Marshal(latest); err == nil {
		if err := s.cache.Set(ctx, key, payload, s.latestTTL); err != nil {
			s.logger.Debug("latest snapshot cache fill failed",
				slog.String("startup_id", startupID),
				slog.Any("error", err),
			)
		}
	}
	return latest, nil
}

// Append writes through and drops the cached latest entry. A version
// conflict also drops it, since the cached entry is then known to be stale.
func (s *CachedStore) Append(ctx context.Context, snapshot models.StartupSnapshot) error {
	err := s.Store.Append(ctx, snapshot)
	if err != nil && !errors.Is(err, models.ErrVersionConflict) {
		return err
	}
	s.invalidate(ctx, snapshot.StartupID)
	return err
}

func (s *CachedStore) invalidate(ctx context.Context, startupID string) {
	if err := s.cache.Del(ctx, latestKey(startupID)); err != nil {
		s.logger.Warn("latest snapshot cache invalidation failed",
			slog.String("startup_id", startupID),
			slog.Any("error", err),
		)
	}
}

func latestKey(startupID string) string {
	return cache.Key("latest", startupID)
}
