package models

import (
	"strings"
	"time"
)

// Field names a structured snapshot field.
type Field string

const (
	FieldProblem                   Field = "problem"
	FieldTargetUser                Field = "target_user"
	FieldJobToBeDone               Field = "job_to_be_done"
	FieldSolution                  Field = "solution"
	FieldValueProp                 Field = "value_prop"
	FieldPrimaryChannelType        Field = "primary_channel_type"
	FieldPrimaryChannelDescription Field = "primary_channel_description"
	FieldHypothesis                Field = "hypothesis"
	FieldMetric                    Field = "metric"
	FieldTimeframe                 Field = "timeframe"
	FieldTechFeasibilityNotes      Field = "tech_feasibility_notes"
	FieldTopRisks                  Field = "top_risks"
	FieldDeclaredNextSteps         Field = "declared_next_steps"
)

var textFields = []Field{
	FieldProblem,
	FieldTargetUser,
	FieldJobToBeDone,
	FieldSolution,
	FieldValueProp,
	FieldPrimaryChannelType,
	FieldPrimaryChannelDescription,
	FieldHypothesis,
	FieldMetric,
	FieldTimeframe,
	FieldTechFeasibilityNotes,
}

var listFields = []Field{FieldTopRisks, FieldDeclaredNextSteps}

// TextFields returns the string-valued fields in canonical order.
func TextFields() []Field {
	return append([]Field(nil), textFields...)
}

// ListFields returns the list-valued fields in canonical order.
func ListFields() []Field {
	return append([]Field(nil), listFields...)
}

// CanonicalFields returns every structured field in canonical order: text
// fields first, list fields last.
func CanonicalFields() []Field {
	out := make([]Field, 0, len(textFields)+len(listFields))
	out = append(out, textFields...)
	return append(out, listFields...)
}

// IsList reports whether the field holds an ordered list.
func (f Field) IsList() bool {
	return f == FieldTopRisks || f == FieldDeclaredNextSteps
}

// Valid reports whether f is one of the known structured fields.
func (f Field) Valid() bool {
	for _, known := range CanonicalFields() {
		if f == known {
			return true
		}
	}
	return false
}

// FieldSet is an unordered set of fields.
type FieldSet map[Field]struct{}

// NewFieldSet builds a set from the supplied fields.
func NewFieldSet(fields ...Field) FieldSet {
	set := make(FieldSet, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// Has reports membership; a nil set contains nothing.
func (s FieldSet) Has(f Field) bool {
	_, ok := s[f]
	return ok
}

// ChannelType enumerates the distribution channels a startup can commit to.
type ChannelType string

const (
	ChannelColdOutreach ChannelType = "cold_outreach"
	ChannelCommunity    ChannelType = "community"
	ChannelPaidAds      ChannelType = "paid_ads"
	ChannelPartnerships ChannelType = "partnerships"
	ChannelMarketplace  ChannelType = "marketplace"
	ChannelProductLed   ChannelType = "product_led"

	// ChannelCustomerInterviews is the generic validation channel used by
	// experiments that do not depend on the startup's own channel.
	ChannelCustomerInterviews ChannelType = "customer_interviews"
)

// ChannelTypes lists the channel values a snapshot may declare.
func ChannelTypes() []ChannelType {
	return []ChannelType{
		ChannelColdOutreach,
		ChannelCommunity,
		ChannelPaidAds,
		ChannelPartnerships,
		ChannelMarketplace,
		ChannelProductLed,
	}
}

// ParseChannelType normalises free-form channel labels ("Paid Ads",
// "product-led") to the enumerated value.
func ParseChannelType(value string) (ChannelType, bool) {
	normalised := strings.ToLower(strings.TrimSpace(value))
	normalised = strings.NewReplacer(" ", "_", "-", "_").Replace(normalised)
	for _, ct := range ChannelTypes() {
		if string(ct) == normalised {
			return ct, true
		}
	}
	return "", false
}

// StartupSnapshot is one immutable, versioned record of a startup's plan.
type StartupSnapshot struct {
	StartupID string    `json:"startup_id"`
	Version   int       `json:"version"`
	Timestamp time.Time `json:"timestamp"`

	Problem     string `json:"problem,omitempty"`
	TargetUser  string `json:"target_user,omitempty"`
	JobToBeDone string `json:"job_to_be_done,omitempty"`

	Solution  string `json:"solution,omitempty"`
	ValueProp string `json:"value_prop,omitempty"`

	PrimaryChannelType        string `json:"primary_channel_type,omitempty"`
	PrimaryChannelDescription string `json:"primary_channel_description,omitempty"`

	Hypothesis string `json:"hypothesis,omitempty"`
	Metric     string `json:"metric,omitempty"`
	Timeframe  string `json:"timeframe,omitempty"`

	TechFeasibilityNotes string   `json:"tech_feasibility_notes,omitempty"`
	TopRisks             []string `json:"top_risks"`
	DeclaredNextSteps    []string `json:"declared_next_steps"`
}

// Text returns the value of a string-valued field; list fields and unknown
// names yield "".
func (s StartupSnapshot) Text(f Field) string {
	switch f {
	case FieldProblem:
		return s.Problem
	case FieldTargetUser:
		return s.TargetUser
	case FieldJobToBeDone:
		return s.JobToBeDone
	case FieldSolution:
		return s.Solution
	case FieldValueProp:
		return s.ValueProp
	case FieldPrimaryChannelType:
		return s.PrimaryChannelType
	case FieldPrimaryChannelDescription:
		return s.PrimaryChannelDescription
	case FieldHypothesis:
		return s.Hypothesis
	case FieldMetric:
		return s.Metric
	case FieldTimeframe:
		return s.Timeframe
	case FieldTechFeasibilityNotes:
		return s.TechFeasibilityNotes
	default:
		return ""
	}
}

// SetText assigns a string-valued field. List fields and unknown names are ignored.
func (s *StartupSnapshot) SetText(f Field, value string) {
	switch f {
	case FieldProblem:
		s.Problem = value
	case FieldTargetUser:
		s.TargetUser = value
	case FieldJobToBeDone:
		s.JobToBeDone = value
	case FieldSolution:
		s.Solution = value
	case FieldValueProp:
		s.ValueProp = value
	case FieldPrimaryChannelType:
		s.PrimaryChannelType = value
	case FieldPrimaryChannelDescription:
		s.PrimaryChannelDescription = value
	case FieldHypothesis:
		s.Hypothesis = value
	case FieldMetric:
		s.Metric = value
	case FieldTimeframe:
		s.Timeframe = value
	case FieldTechFeasibilityNotes:
		s.TechFeasibilityNotes = value
	}
}

// List returns a copy of a list-valued field.
func (s StartupSnapshot) List(f Field) []string {
	switch f {
	case FieldTopRisks:
		return append([]string(nil), s.TopRisks...)
	case FieldDeclaredNextSteps:
		return append([]string(nil), s.DeclaredNextSteps...)
	default:
		return nil
	}
}

// SetList assigns a list-valued field, copying the input.
func (s *StartupSnapshot) SetList(f Field, values []string) {
	copied := append([]string{}, values...)
	switch f {
	case FieldTopRisks:
		s.TopRisks = copied
	case FieldDeclaredNextSteps:
		s.DeclaredNextSteps = copied
	}
}

// Clone returns a deep copy so callers never share list backing arrays.
func (s StartupSnapshot) Clone() StartupSnapshot {
	out := s
	out.TopRisks = append([]string{}, s.TopRisks...)
	out.DeclaredNextSteps = append([]string{}, s.DeclaredNextSteps...)
	return out
}

// PartialFields is the extractor output: the subset of fields the input text
// actually mentioned.
type PartialFields struct {
	Text  map[Field]string
	Lists map[Field][]string
	// Pivots marks fields the extractor judged to be a substantive
	// redirection rather than a rewording.
	Pivots FieldSet
}

// NewPartialFields returns an empty, ready to use PartialFields.
func NewPartialFields() PartialFields {
	return PartialFields{
		Text:   make(map[Field]string),
		Lists:  make(map[Field][]string),
		Pivots: make(FieldSet),
	}
}

// Usable counts fields carrying a non-blank value.
func (p PartialFields) Usable() int {
	n := 0
	for _, v := range p.Text {
		if strings.TrimSpace(v) != "" {
			n++
		}
	}
	for _, items := range p.Lists {
		if len(CleanList(items)) > 0 {
			n++
		}
	}
	return n
}

// CleanList trims entries and drops blanks, preserving order.
func CleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
