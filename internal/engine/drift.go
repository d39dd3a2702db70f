package engine

import (
	"fmt"
	"slices"
	"strings"

	"github.com/miradorstack/realitycheck/internal/models"
)

// listSeparator joins list values for before/after rendering.
const listSeparator = "; "

// definitionalFields redefine the business when they change.
var definitionalFields = models.NewFieldSet(
	models.FieldProblem,
	models.FieldTargetUser,
	models.FieldSolution,
	models.FieldPrimaryChannelType,
)

// DriftDetector diffs consecutive snapshots field by field.
type DriftDetector struct{}

// NewDriftDetector constructs a DriftDetector.
func NewDriftDetector() *DriftDetector {
	return &DriftDetector{}
}

// DefaultClassification is the structural classification of a change to field.
func DefaultClassification(field models.Field) models.DriftClassification {
	if definitionalFields.Has(field) {
		return models.DriftMajorChange
	}
	return models.DriftMinorRefinement
}

// Diff returns one DriftItem per changed field in canonical field order.
// pivots carries the extractor's judgement of which fields were redirected
// substantively; any field in it is escalated to major_change.
func (d *DriftDetector) Diff(previous *models.StartupSnapshot, current models.StartupSnapshot, pivots models.FieldSet) []models.DriftItem {
	mustBeWellFormed(current)
	if previous == nil {
		return nil
	}
	mustBeWellFormed(*previous)

	var items []models.DriftItem
	for _, field := range models.TextFields() {
		before := strings.TrimSpace(previous.Text(field))
		after := strings.TrimSpace(current.Text(field))
		if before == after {
			continue
		}
		items = append(items, newDriftItem(field, before, after, pivots))
	}
	for _, field := range models.ListFields() {
		before := models.CleanList(previous.List(field))
		after := models.CleanList(current.List(field))
		if slices.Equal(before, after) {
			continue
		}
		items = append(items, newDriftItem(field,
			strings.Join(before, listSeparator),
			strings.Join(after, listSeparator),
			pivots))
	}
	return items
}

func newDriftItem(field models.Field, before, after string, pivots models.FieldSet) models.DriftItem {
	classification := DefaultClassification(field)
	escalated := pivots.Has(field) && classification != models.DriftMajorChange
	if pivots.Has(field) {
		classification = models.DriftMajorChange
	}
	return models.DriftItem{
		Field:          field,
		Before:         optional(before),
		After:          optional(after),
		Classification: classification,
		Comment:        driftComment(field, before, after, classification, escalated),
	}
}

func driftComment(field models.Field, before, after string, classification models.DriftClassification, escalated bool) string {
	var verb string
	switch {
	case before == "":
		verb = "newly stated"
	case after == "":
		verb = "cleared"
	default:
		verb = "changed"
	}
	switch {
	case escalated:
		return fmt.Sprintf("%s %s; flagged as a redirection rather than a refinement", field, verb)
	case classification == models.DriftMajorChange:
		return fmt.Sprintf("%s %s; this field defines the business, treat as a pivot", field, verb)
	default:
		return fmt.Sprintf("%s %s; detail refined without changing direction", field, verb)
	}
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
