package models

import "fmt"

// Severity captures the impact of a dimension finding.
type Severity string

const (
	SeverityBlocker Severity = "blocker"
	SeverityMajor   Severity = "major"
	SeverityMinor   Severity = "minor"
	SeverityOK      Severity = "ok"
)

// Rank orders severities by impact: blocker is highest, ok is zero.
// It panics on values outside the enumeration.
func (s Severity) Rank() int {
	switch s {
	case SeverityBlocker:
		return 3
	case SeverityMajor:
		return 2
	case SeverityMinor:
		return 1
	case SeverityOK:
		return 0
	default:
		panic(fmt.Sprintf("models: unknown severity %q", string(s)))
	}
}

// Valid reports whether s is one of the enumerated severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityBlocker, SeverityMajor, SeverityMinor, SeverityOK:
		return true
	default:
		return false
	}
}

// Dimension is a fixed axis of evaluation.
type Dimension string

const (
	DimensionProblemClarity     Dimension = "problem_clarity"
	DimensionUserDefinition     Dimension = "user_definition"
	DimensionSolutionDefinition Dimension = "solution_definition"
	DimensionChannelViability   Dimension = "channel_viability"
	DimensionHypothesisValidity Dimension = "hypothesis_validity"
	DimensionFeasibility        Dimension = "feasibility"
)

// Dimensions returns every evaluation dimension in reporting order.
func Dimensions() []Dimension {
	return []Dimension{
		DimensionProblemClarity,
		DimensionUserDefinition,
		DimensionSolutionDefinition,
		DimensionChannelViability,
		DimensionHypothesisValidity,
		DimensionFeasibility,
	}
}

// Order returns the dimension's position in the fixed reporting order, or -1.
func (d Dimension) Order() int {
	for i, known := range Dimensions() {
		if d == known {
			return i
		}
	}
	return -1
}

// ConcernsChannel reports whether experiments for this dimension should run
// through the startup's own distribution channel.
func (d Dimension) ConcernsChannel() bool {
	return d == DimensionChannelViability || d == DimensionUserDefinition
}

// DimensionReview is the evaluation of one dimension against a snapshot.
// Issue, Evidence and Recommendation are set together, and only when
// Severity is not ok.
type DimensionReview struct {
	Dimension      Dimension `json:"dimension"`
	Severity       Severity  `json:"severity"`
	Issue          string    `json:"issue,omitempty"`
	Evidence       string    `json:"evidence,omitempty"`
	Recommendation string    `json:"recommendation,omitempty"`
}

// Experiment is a proposed validation action.
type Experiment struct {
	Title           string   `json:"title"`
	ChannelType     string   `json:"channel_type"`
	Steps           []string `json:"steps"`
	SuccessCriteria string   `json:"success_criteria"`
	TimeCost        string   `json:"time_cost"`
	// Dimension records which review produced the experiment; it is not
	// part of the wire contract.
	Dimension Dimension `json:"-"`
}

// DriftClassification labels a field change.
type DriftClassification string

const (
	DriftMajorChange     DriftClassification = "major_change"
	DriftMinorRefinement DriftClassification = "minor_refinement"
)

// Valid reports whether c is one of the enumerated classifications.
func (c DriftClassification) Valid() bool {
	switch c {
	case DriftMajorChange, DriftMinorRefinement:
		return true
	default:
		return false
	}
}

// DriftItem is one field-level change between consecutive snapshot versions.
// A nil Before means the field was newly populated; a nil After means it was
// cleared.
type DriftItem struct {
	Field          Field               `json:"field"`
	Before         *string             `json:"before"`
	After          *string             `json:"after"`
	Classification DriftClassification `json:"classification"`
	Comment        string              `json:"comment,omitempty"`
}

// GateStatus is the binary gating decision.
type GateStatus string

const (
	StatusBlocked GateStatus = "BLOCKED"
	StatusOK      GateStatus = "OK"
)

// AnalysisResponse is returned for every analysis call. It is derived, never persisted.
type AnalysisResponse struct {
	Snapshot         StartupSnapshot   `json:"snapshot"`
	DimensionReviews []DimensionReview `json:"dimension_reviews"`
	Experiments      []Experiment      `json:"experiments"`
	Drift            []DriftItem       `json:"drift"`
	Status           GateStatus        `json:"status"`
}
