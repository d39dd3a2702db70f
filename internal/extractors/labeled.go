package extractors

import (
	"context"
	"strings"

	"github.com/miradorstack/realitycheck/internal/models"
)

// labelAliases maps lowercase labels to fields. Canonical names are accepted
// with spaces, dashes or underscores.
var labelAliases = map[string]models.Field{
	"user":         models.FieldTargetUser,
	"users":        models.FieldTargetUser,
	"audience":     models.FieldTargetUser,
	"customer":     models.FieldTargetUser,
	"jtbd":         models.FieldJobToBeDone,
	"job":          models.FieldJobToBeDone,
	"product":      models.FieldSolution,
	"value":        models.FieldValueProp,
	"value prop":   models.FieldValueProp,
	"channel":      models.FieldPrimaryChannelType,
	"channel type": models.FieldPrimaryChannelType,
	"channel plan": models.FieldPrimaryChannelDescription,
	"distribution": models.FieldPrimaryChannelDescription,
	"kpi":          models.FieldMetric,
	"deadline":     models.FieldTimeframe,
	"feasibility":  models.FieldTechFeasibilityNotes,
	"tech notes":   models.FieldTechFeasibilityNotes,
	"risks":        models.FieldTopRisks,
	"risk":         models.FieldTopRisks,
	"next steps":   models.FieldDeclaredNextSteps,
	"next":         models.FieldDeclaredNextSteps,
	"todo":         models.FieldDeclaredNextSteps,
}

// pivotLabels introduce a comma separated list of fields the founder says
// were redirected rather than refined.
var pivotLabels = map[string]bool{"pivot": true, "pivots": true}

// LabeledExtractor parses "label: value" lines. It needs no network and is
// deterministic, which makes it the extractor for offline use and tests.
//
//	problem: freelancers lose invoices
//	user: freelance designers
//	risks: churn; pricing
//	- a third risk on its own line
//	pivot: target_user
type LabeledExtractor struct{}

// NewLabeledExtractor constructs a LabeledExtractor.
func NewLabeledExtractor() *LabeledExtractor {
	return &LabeledExtractor{}
}

// Extract parses text. Blank text yields an empty result; non-blank text
// without a single recognised label is an extraction error.
func (e *LabeledExtractor) Extract(ctx context.Context, text string) (models.PartialFields, error) {
	if err := ctx.Err(); err != nil {
		return models.PartialFields{}, err
	}
	if strings.TrimSpace(text) == "" {
		return models.NewPartialFields(), nil
	}

	var raw RawFields
	var current models.Field
	found := false
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if label, value, ok := strings.Cut(line, ":"); ok {
			key := normaliseLabel(label)
			if pivotLabels[key] {
				for _, p := range strings.Split(value, ",") {
					if p = strings.TrimSpace(p); p != "" {
						raw.Pivots = append(raw.Pivots, string(resolveLabel(normaliseLabel(p))))
					}
				}
				current = ""
				found = true
				continue
			}
			if field := resolveLabel(key); field.Valid() {
				current = field
				found = true
				appendValue(&raw, field, value)
				continue
			}
		}
		if current == "" {
			continue
		}
		appendValue(&raw, current, strings.TrimPrefix(strings.TrimPrefix(line, "-"), "*"))
	}
	if !found {
		return models.PartialFields{}, &models.ExtractionError{Reason: "no labelled fields found"}
	}
	return ToPartial(raw)
}

func normaliseLabel(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	return strings.NewReplacer("_", " ", "-", " ").Replace(label)
}

func resolveLabel(key string) models.Field {
	if field, ok := labelAliases[key]; ok {
		return field
	}
	return models.Field(strings.ReplaceAll(key, " ", "_"))
}

// appendValue adds to a field: list values split on ";", text values join
// continuation lines with a space.
func appendValue(raw *RawFields, field models.Field, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	if field.IsList() {
		items := strings.Split(value, ";")
		switch field {
		case models.FieldTopRisks:
			raw.TopRisks = append(raw.TopRisks, items...)
		case models.FieldDeclaredNextSteps:
			raw.DeclaredNextSteps = append(raw.DeclaredNextSteps, items...)
		}
		return
	}
	target := textTarget(raw, field)
	if *target == "" {
		*target = value
	} else {
		*target += " " + value
	}
}

func textTarget(raw *RawFields, field models.Field) *string {
	switch field {
	case models.FieldProblem:
		return &raw.Problem
	case models.FieldTargetUser:
		return &raw.TargetUser
	case models.FieldJobToBeDone:
		return &raw.JobToBeDone
	case models.FieldSolution:
		return &raw.Solution
	case models.FieldValueProp:
		return &raw.ValueProp
	case models.FieldPrimaryChannelType:
		return &raw.PrimaryChannelType
	case models.FieldPrimaryChannelDescription:
		return &raw.PrimaryChannelDescription
	case models.FieldHypothesis:
		return &raw.Hypothesis
	case models.FieldMetric:
		return &raw.Metric
	case models.FieldTimeframe:
		return &raw.Timeframe
	default:
		return &raw.TechFeasibilityNotes
	}
}
