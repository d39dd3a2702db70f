package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := Register(reg); err != nil {
		t.Fatalf("second register: %v", err)
	}
}

func TestObserveAnalysisNormalisesOutcome(t *testing.T) {
	before := testutil.ToFloat64(analysesTotal.WithLabelValues(OutcomeError))
	ObserveAnalysis(-time.Second, "anything")
	after := testutil.ToFloat64(analysesTotal.WithLabelValues(OutcomeError))
	if after != before+1 {
		t.Fatalf("expected unknown outcome to count as error, got %v -> %v", before, after)
	}

	conflicts := testutil.ToFloat64(analysesTotal.WithLabelValues(OutcomeConflict))
	ObserveAnalysis(time.Millisecond, OutcomeConflict)
	if got := testutil.ToFloat64(analysesTotal.WithLabelValues(OutcomeConflict)); got != conflicts+1 {
		t.Fatalf("conflict outcome = %v, want %v", got, conflicts+1)
	}
}

func TestObserveGateAndConflicts(t *testing.T) {
	blocked := testutil.ToFloat64(gateDecisionsTotal.WithLabelValues("BLOCKED"))
	ObserveGate("BLOCKED")
	if got := testutil.ToFloat64(gateDecisionsTotal.WithLabelValues("BLOCKED")); got != blocked+1 {
		t.Fatalf("gate counter = %v, want %v", got, blocked+1)
	}

	conflicts := testutil.ToFloat64(versionConflictsTotal)
	ObserveVersionConflict()
	if got := testutil.ToFloat64(versionConflictsTotal); got != conflicts+1 {
		t.Fatalf("conflict counter = %v, want %v", got, conflicts+1)
	}
}
