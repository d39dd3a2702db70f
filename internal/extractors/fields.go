// Package extractors turns a founder's free text into the partial set of
// snapshot fields it mentions.
package extractors

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/miradorstack/realitycheck/internal/models"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// RawFields is the JSON document every extractor backend produces: the
// snapshot fields plus the list of fields the backend judged to be pivots.
// Absent or null fields decode to empty values and are not merged.
type RawFields struct {
	Problem                   string   `json:"problem,omitempty"`
	TargetUser                string   `json:"target_user,omitempty"`
	JobToBeDone               string   `json:"job_to_be_done,omitempty"`
	Solution                  string   `json:"solution,omitempty"`
	ValueProp                 string   `json:"value_prop,omitempty"`
	PrimaryChannelType        string   `json:"primary_channel_type,omitempty" validate:"omitempty,channel"`
	PrimaryChannelDescription string   `json:"primary_channel_description,omitempty"`
	Hypothesis                string   `json:"hypothesis,omitempty"`
	Metric                    string   `json:"metric,omitempty"`
	Timeframe                 string   `json:"timeframe,omitempty"`
	TechFeasibilityNotes      string   `json:"tech_feasibility_notes,omitempty"`
	TopRisks                  []string `json:"top_risks,omitempty" validate:"max=20"`
	DeclaredNextSteps         []string `json:"declared_next_steps,omitempty" validate:"max=20"`
	Pivots                    []string `json:"pivots,omitempty" validate:"dive,field_name"`
}

func init() {
	must := func(err error) {
		if err != nil {
			panic(err)
		}
	}
	must(validate.RegisterValidation("channel", func(fl validator.FieldLevel) bool {
		_, ok := models.ParseChannelType(fl.Field().String())
		return ok
	}))
	must(validate.RegisterValidation("field_name", func(fl validator.FieldLevel) bool {
		return models.Field(strings.TrimSpace(fl.Field().String())).Valid()
	}))
}

// ToPartial validates raw and converts it to PartialFields, normalising the
// channel label and trimming every value.
func ToPartial(raw RawFields) (models.PartialFields, error) {
	if err := validate.Struct(raw); err != nil {
		return models.PartialFields{}, &models.ExtractionError{Reason: describe(err), Err: err}
	}

	out := models.NewPartialFields()
	texts := map[models.Field]string{
		models.FieldProblem:                   raw.Problem,
		models.FieldTargetUser:                raw.TargetUser,
		models.FieldJobToBeDone:               raw.JobToBeDone,
		models.FieldSolution:                  raw.Solution,
		models.FieldValueProp:                 raw.ValueProp,
		models.FieldPrimaryChannelType:        raw.PrimaryChannelType,
		models.FieldPrimaryChannelDescription: raw.PrimaryChannelDescription,
		models.FieldHypothesis:                raw.Hypothesis,
		models.FieldMetric:                    raw.Metric,
		models.FieldTimeframe:                 raw.Timeframe,
		models.FieldTechFeasibilityNotes:      raw.TechFeasibilityNotes,
	}
	for field, value := range texts {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if field == models.FieldPrimaryChannelType {
			ct, _ := models.ParseChannelType(value)
			value = string(ct)
		}
		out.Text[field] = value
	}
	if items := models.CleanList(raw.TopRisks); len(items) > 0 {
		out.Lists[models.FieldTopRisks] = items
	}
	if items := models.CleanList(raw.DeclaredNextSteps); len(items) > 0 {
		out.Lists[models.FieldDeclaredNextSteps] = items
	}
	for _, p := range raw.Pivots {
		out.Pivots[models.Field(strings.TrimSpace(p))] = struct{}{}
	}
	return out, nil
}

// FromPartial renders extracted fields as the RawFields document served by
// an extraction service. Pivots are emitted in canonical field order.
func FromPartial(p models.PartialFields) RawFields {
	var raw RawFields
	for _, field := range models.TextFields() {
		if value := p.Text[field]; value != "" {
			*textTarget(&raw, field) = value
		}
	}
	raw.TopRisks = append(raw.TopRisks, p.Lists[models.FieldTopRisks]...)
	raw.DeclaredNextSteps = append(raw.DeclaredNextSteps, p.Lists[models.FieldDeclaredNextSteps]...)
	for _, field := range models.CanonicalFields() {
		if p.Pivots.Has(field) {
			raw.Pivots = append(raw.Pivots, string(field))
		}
	}
	return raw
}

func describe(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return "invalid fields"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "channel":
		return fmt.Sprintf("unknown channel type %q", fe.Value())
	case "field_name":
		return fmt.Sprintf("unknown pivot field %q", fe.Value())
	default:
		return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
}
