package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels analyses that produced a response.
	OutcomeSuccess = "success"
	// OutcomeRejected labels updates the extractor could not use.
	OutcomeRejected = "rejected"
	// OutcomeConflict labels analyses that lost a race for the startup.
	OutcomeConflict = "conflict"
	// OutcomeError labels any other failure.
	OutcomeError = "error"
)

var (
	analysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "realitycheck",
			Name:      "analyses_total",
			Help:      "Total number of analyses handled, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	analysisDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "realitycheck",
			Name:      "analysis_seconds",
			Help:      "Analysis latency in seconds, extraction included.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 15, 30},
		},
	)

	gateDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "realitycheck",
			Name:      "gate_decisions_total",
			Help:      "Gate decisions, partitioned by status.",
		},
		[]string{"status"},
	)

	driftItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "realitycheck",
			Name:      "drift_items_total",
			Help:      "Field changes detected between consecutive snapshots, partitioned by classification.",
		},
		[]string{"classification"},
	)

	dimensionSeverityTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "realitycheck",
			Name:      "dimension_severity_total",
			Help:      "Dimension reviews, partitioned by dimension and severity.",
		},
		[]string{"dimension", "severity"},
	)

	versionConflictsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "realitycheck",
			Name:      "version_conflicts_total",
			Help:      "Snapshot appends rejected because another writer extended the log first.",
		},
	)
)

// Register attaches realitycheck collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		analysesTotal,
		analysisDurationSeconds,
		gateDecisionsTotal,
		driftItemsTotal,
		dimensionSeverityTotal,
		versionConflictsTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveAnalysis records an analysis duration and outcome label.
func ObserveAnalysis(duration time.Duration, outcome string) {
	label := outcome
	switch label {
	case OutcomeSuccess, OutcomeRejected, OutcomeConflict, OutcomeError:
	default:
		label = OutcomeError
	}
	analysesTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	analysisDurationSeconds.Observe(duration.Seconds())
}

// ObserveGate counts one gate decision.
func ObserveGate(status string) {
	gateDecisionsTotal.WithLabelValues(status).Inc()
}

// ObserveDrift counts one drift item.
func ObserveDrift(classification string) {
	driftItemsTotal.WithLabelValues(classification).Inc()
}

// ObserveDimension counts one dimension review.
func ObserveDimension(dimension, severity string) {
	dimensionSeverityTotal.WithLabelValues(dimension, severity).Inc()
}

// ObserveVersionConflict counts one rejected append.
func ObserveVersionConflict() {
	versionConflictsTotal.Inc()
}
