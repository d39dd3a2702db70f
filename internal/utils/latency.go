package utils

import (
	"slices"
	"sync"
	"time"
)

// LatencyTracker keeps a fixed-size ring of recent durations and reports percentiles.
type LatencyTracker struct {
	mu    sync.RWMutex
	ring  []time.Duration
	next  int
	total int
}

// NewLatencyTracker creates a tracker holding at most size samples.
func NewLatencyTracker(size int) *LatencyTracker {
	if size <= 0 {
		size = 512
	}
	return &LatencyTracker{ring: make([]time.Duration, 0, size)}
}

// Observe records a duration, overwriting the oldest sample once full.
func (l *LatencyTracker) Observe(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.total++
	if len(l.ring) < cap(l.ring) {
		l.ring = append(l.ring, d)
		return
	}
	l.ring[l.next] = d
	l.next = (l.next + 1) % len(l.ring)
}

// Percentile returns the p-th percentile (0-100) of retained samples, or zero.
func (l *LatencyTracker) Percentile(p float64) time.Duration {
	l.mu.RLock()
	sorted := slices.Clone(l.ring)
	l.mu.RUnlock()

	if len(sorted) == 0 {
		return 0
	}
	slices.Sort(sorted)
	switch {
	case p <= 0:
		return sorted[0]
	case p >= 100:
		return sorted[len(sorted)-1]
	}
	return sorted[int((p/100.0)*float64(len(sorted)-1))]
}

// Count returns the number of retained samples.
func (l *LatencyTracker) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.ring)
}

// Total returns how many samples were ever observed.
func (l *LatencyTracker) Total() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.total
}
