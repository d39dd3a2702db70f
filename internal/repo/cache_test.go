package repo

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/miradorstack/realitycheck/internal/cache"
)

type stubCache struct {
	mu     sync.Mutex
	store  map[string][]byte
	setErr error
}

func newStubCache() *stubCache {
	return &stubCache{store: make(map[string][]byte)}
}

func (s *stubCache) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.store[key]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	copyValue := append([]byte(nil), value...)
	return copyValue, nil
}

func (s *stubCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.store[key] = append([]byte(nil), value...)
	return nil
}

func (s *stubCache) SetNX(_ context.Context, key string, value []byte, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.store[key]; exists {
		return false, nil
	}
	s.store[key] = append([]byte(nil), value...)
	return true, nil
}

func (s *stubCache) DelIfEqual(_ context.Context, key string, value []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.store[key]; !ok || !bytes.Equal(current, value) {
		return false, nil
	}
	delete(s.store, key)
	return true, nil
}

func (s *stubCache) Del(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.store, key)
	return nil
}

func (s *stubCache) Close() error { return nil }

func (s *stubCache) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.store[key]
	return ok
}
