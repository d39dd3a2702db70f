package utils

import (
	"testing"
	"time"
)

func TestLatencyTrackerPercentile(t *testing.T) {
	tracker := NewLatencyTracker(10)
	for _, ms := range []int{50, 10, 40, 20, 30} {
		tracker.Observe(time.Duration(ms) * time.Millisecond)
	}

	if tracker.Count() != 5 {
		t.Fatalf("expected count 5, got %d", tracker.Count())
	}
	if p95 := tracker.Percentile(95); p95 < 40*time.Millisecond {
		t.Fatalf("expected p95 >= 40ms, got %v", p95)
	}
	if min := tracker.Percentile(0); min != 10*time.Millisecond {
		t.Fatalf("expected p0 10ms, got %v", min)
	}
}

func TestLatencyTrackerRingOverwritesOldest(t *testing.T) {
	tracker := NewLatencyTracker(3)
	for i := 1; i <= 10; i++ {
		tracker.Observe(time.Duration(i) * time.Millisecond)
	}
	if tracker.Count() != 3 {
		t.Fatalf("expected tracker size 3, got %d", tracker.Count())
	}
	if tracker.Total() != 10 {
		t.Fatalf("expected 10 observed, got %d", tracker.Total())
	}
	if min := tracker.Percentile(0); min != 8*time.Millisecond {
		t.Fatalf("expected oldest retained sample 8ms, got %v", min)
	}
}

func TestAppErrorCarriesStartupContext(t *testing.T) {
	err := NewStartupError("append", "acme", 3, "conflict persisted", errSentinel)
	want := "append [startup=acme version=3]: conflict persisted: sentinel"
	if err.Error() != want {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

type sentinelError struct{}

func (sentinelError) Error() string { return "sentinel" }

var errSentinel = sentinelError{}
