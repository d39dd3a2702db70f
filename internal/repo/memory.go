package repo

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/miradorstack/realitycheck/internal/models"
)

var errMissingStartupID = errors.New("startup id is required")

// MemoryStore keeps snapshot logs in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	logs map[string][]models.StartupSnapshot
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{logs: make(map[string][]models.StartupSnapshot)}
}

// Latest returns the newest snapshot, or nil when the startup has none.
func (s *MemoryStore) Latest(ctx context.Context, startupID string) (*models.StartupSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	log := s.logs[startupID]
	if len(log) == 0 {
		return nil, nil
	}
	latest := log[len(log)-1].Clone()
	return &latest, nil
}

// Append adds snapshot when its version directly follows the latest one.
func (s *MemoryStore) Append(ctx context.Context, snapshot models.StartupSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := checkAppendable(snapshot); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	log := s.logs[snapshot.StartupID]
	if want := len(log) + 1; snapshot.Version != want {
		return fmt.Errorf("append version %d, expected %d: %w", snapshot.Version, want, models.ErrVersionConflict)
	}
	s.logs[snapshot.StartupID] = append(log, snapshot.Clone())
	return nil
}

// List returns copies of every stored version in ascending order.
func (s *MemoryStore) List(ctx context.Context, startupID string) ([]models.StartupSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	log := s.logs[startupID]
	out := make([]models.StartupSnapshot, 0, len(log))
	for _, snapshot := range log {
		out = append(out, snapshot.Clone())
	}
	return out, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
