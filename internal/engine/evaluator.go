package engine

import (
	"fmt"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/miradorstack/realitycheck/internal/models"
)

// minTargetUserChars mirrors the shortest audience description that can
// name a role at all.
const minTargetUserChars = 5

// Evaluator scores a snapshot against the fixed dimensions. It is a pure
// function of the snapshot and the policy it was built with.
type Evaluator struct {
	policy Policy
}

// NewEvaluator constructs an Evaluator from a validated policy.
func NewEvaluator(policy Policy) *Evaluator {
	return &Evaluator{policy: policy}
}

// Evaluate returns one review per dimension in models.Dimensions order.
func (e *Evaluator) Evaluate(snapshot models.StartupSnapshot) []models.DimensionReview {
	mustBeWellFormed(snapshot)
	reviews := make([]models.DimensionReview, 0, len(models.Dimensions()))
	for _, dim := range models.Dimensions() {
		var review models.DimensionReview
		switch dim {
		case models.DimensionProblemClarity:
			review = e.problemClarity(snapshot)
		case models.DimensionUserDefinition:
			review = e.userDefinition(snapshot)
		case models.DimensionSolutionDefinition:
			review = e.solutionDefinition(snapshot)
		case models.DimensionChannelViability:
			review = e.channelViability(snapshot)
		case models.DimensionHypothesisValidity:
			review = e.hypothesisValidity(snapshot)
		case models.DimensionFeasibility:
			review = e.feasibility(snapshot)
		default:
			panic(fmt.Sprintf("engine: no rule for dimension %q", dim))
		}
		review.Dimension = dim
		reviews = append(reviews, review)
	}
	return reviews
}

func (e *Evaluator) problemClarity(s models.StartupSnapshot) models.DimensionReview {
	problem := strings.TrimSpace(s.Problem)
	if problem == "" {
		return finding(models.SeverityBlocker,
			"No problem statement.",
			"problem is empty",
			"State the specific pain, who feels it, and when it happens.")
	}
	return e.vagueness(models.DimensionProblemClarity, models.FieldProblem, problem,
		"Problem statement is too vague to test.",
		"Problem statement lacks detail.",
		"Describe the situation in which the pain occurs and what it costs today.")
}

func (e *Evaluator) userDefinition(s models.StartupSnapshot) models.DimensionReview {
	user := strings.TrimSpace(s.TargetUser)
	if utf8.RuneCountInString(user) < minTargetUserChars {
		return finding(models.SeverityBlocker,
			"Target user is missing or too short.",
			quote(models.FieldTargetUser, user),
			"Name a specific role in a specific context, e.g. 'HR managers in Series B tech companies'.")
	}
	return e.vagueness(models.DimensionUserDefinition, models.FieldTargetUser, user,
		"Target user is too broad to reach or interview.",
		"Target user could be narrower.",
		"Define who (role), where (context) and what they are doing (behaviour).")
}

func (e *Evaluator) solutionDefinition(s models.StartupSnapshot) models.DimensionReview {
	solution := strings.TrimSpace(s.Solution)
	if solution == "" {
		return finding(models.SeverityBlocker,
			"No solution described.",
			"solution is empty",
			"Describe what the product does for the user in one or two sentences.")
	}
	review := e.vagueness(models.DimensionSolutionDefinition, models.FieldSolution, solution,
		"Solution description is too vague to build or sell.",
		"Solution description lacks detail.",
		"Describe the core workflow the user goes through and the outcome they get.")
	if review.Severity == models.SeverityOK && strings.TrimSpace(s.ValueProp) == "" {
		return finding(models.SeverityMinor,
			"Value proposition not stated.",
			"value_prop is empty",
			"Say why the user would switch from their current workaround.")
	}
	return review
}

func (e *Evaluator) channelViability(s models.StartupSnapshot) models.DimensionReview {
	channel := strings.TrimSpace(s.PrimaryChannelType)
	if channel == "" {
		return finding(models.SeverityBlocker,
			"No distribution channel defined.",
			"primary_channel_type is empty",
			"Pick one concrete channel you can run this week.")
	}
	if _, ok := models.ParseChannelType(channel); !ok {
		return finding(models.SeverityMajor,
			"Primary channel is not one of the supported channel types.",
			quote(models.FieldPrimaryChannelType, channel),
			"Choose exactly one of: "+joinChannels()+".")
	}
	description := strings.TrimSpace(s.PrimaryChannelDescription)
	if description == "" {
		return finding(models.SeverityMajor,
			"Channel has no executable description.",
			"primary_channel_description is empty",
			"Say where exactly you will find the users and what you will send them.")
	}
	return e.vagueness(models.DimensionChannelViability, models.FieldPrimaryChannelDescription, description,
		"Channel description is not executable.",
		"Channel description lacks specifics.",
		"Name the platform, the community or list, and the message you will use.")
}

func (e *Evaluator) hypothesisValidity(s models.StartupSnapshot) models.DimensionReview {
	hypothesis := strings.TrimSpace(s.Hypothesis)
	if hypothesis == "" {
		return finding(models.SeverityBlocker,
			"No testable hypothesis.",
			"hypothesis is empty",
			"Use: For <user>, if we offer <solution> through <channel>, then within <timeframe> we expect <change in metric>.")
	}
	metric := strings.TrimSpace(s.Metric)
	if metric == "" {
		return finding(models.SeverityMajor,
			"Hypothesis has no metric.",
			"metric is empty",
			"Pick one behaviour metric such as paid conversions or weekly retained users.")
	}
	dp := e.policy.Dimensions[models.DimensionHypothesisValidity]
	if phrase, ok := matchPhrase(metric, dp.VaguePhrases); ok {
		return finding(models.SeverityMajor,
			"Metric is a vanity metric.",
			fmt.Sprintf("metric %q mentions %q", metric, phrase),
			"Measure behaviour that costs the user something: payment, retention, activation.")
	}
	if strings.TrimSpace(s.Timeframe) == "" {
		return finding(models.SeverityMajor,
			"Hypothesis has no timeframe.",
			"timeframe is empty",
			"Set a deadline of days or weeks, not months.")
	}
	return e.vagueness(models.DimensionHypothesisValidity, models.FieldHypothesis, hypothesis,
		"Hypothesis is too vague to falsify.",
		"Hypothesis could be sharper.",
		"Include the expected change and its threshold in the sentence.")
}

func (e *Evaluator) feasibility(s models.StartupSnapshot) models.DimensionReview {
	notes := strings.TrimSpace(s.TechFeasibilityNotes)
	risks := models.CleanList(s.TopRisks)
	if notes == "" && len(risks) == 0 {
		return finding(models.SeverityBlocker,
			"No feasibility assessment or risks identified.",
			"tech_feasibility_notes and top_risks are empty",
			"List the top three risks and note what is technically unproven.")
	}
	if notes == "" {
		return finding(models.SeverityMinor,
			"Risks are named but feasibility is not assessed.",
			fmt.Sprintf("top risk: %q", risks[0]),
			"Note whether the riskiest component has been prototyped.")
	}
	review := e.vagueness(models.DimensionFeasibility, models.FieldTechFeasibilityNotes, notes,
		"Feasibility notes are too thin to judge.",
		"Feasibility notes lack detail.",
		"Name the component most likely to fail and how you will de-risk it.")
	if review.Severity == models.SeverityOK && len(risks) == 0 {
		return finding(models.SeverityMinor,
			"No ranked risks.",
			"top_risks is empty",
			"Rank the top three risks by how likely they are to kill the idea.")
	}
	return review
}

// vagueness applies the shared present-but-vague rule: vague terms or too
// few words are major, a short answer is minor, anything else is ok.
func (e *Evaluator) vagueness(dim models.Dimension, field models.Field, value, majorIssue, minorIssue, recommendation string) models.DimensionReview {
	dp := e.policy.Dimensions[dim]
	if term, ok := matchTerm(value, dp.VagueTerms); ok {
		return finding(models.SeverityMajor, majorIssue,
			fmt.Sprintf("%s is the generic term %q", field, term), recommendation)
	}
	if phrase, ok := matchPhrase(value, dp.VaguePhrases); ok {
		return finding(models.SeverityMajor, majorIssue,
			fmt.Sprintf("%s mentions %q", field, phrase), recommendation)
	}
	words := len(tokenize(value))
	if words < dp.MajorBelowWords {
		return finding(models.SeverityMajor, majorIssue,
			fmt.Sprintf("%s has %d words: %q", field, words, value), recommendation)
	}
	if words < dp.MinorBelowWords {
		return finding(models.SeverityMinor, minorIssue,
			fmt.Sprintf("%s has %d words: %q", field, words, value), recommendation)
	}
	return models.DimensionReview{Severity: models.SeverityOK}
}

func finding(severity models.Severity, issue, evidence, recommendation string) models.DimensionReview {
	return models.DimensionReview{
		Severity:       severity,
		Issue:          issue,
		Evidence:       evidence,
		Recommendation: recommendation,
	}
}

func quote(field models.Field, value string) string {
	if value == "" {
		return fmt.Sprintf("%s is empty", field)
	}
	return fmt.Sprintf("%s: %q", field, value)
}

func joinChannels() string {
	names := make([]string, 0, len(models.ChannelTypes()))
	for _, ct := range models.ChannelTypes() {
		names = append(names, string(ct))
	}
	return strings.Join(names, ", ")
}

// tokenize lowercases and splits on anything that is not a letter or digit.
func tokenize(value string) []string {
	return strings.FieldsFunc(strings.ToLower(value), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// matchTerm reports whether the whole value, ignoring articles, equals one of terms.
func matchTerm(value string, terms []string) (string, bool) {
	words := slices.DeleteFunc(tokenize(value), func(w string) bool {
		return w == "the" || w == "a" || w == "an" || w == "all"
	})
	joined := strings.Join(words, " ")
	for _, term := range terms {
		if joined == strings.Join(tokenize(term), " ") {
			return term, true
		}
	}
	return "", false
}

// matchPhrase reports whether any phrase occurs in value as a whole-word sequence.
func matchPhrase(value string, phrases []string) (string, bool) {
	words := tokenize(value)
	for _, phrase := range phrases {
		needle := tokenize(phrase)
		if len(needle) == 0 || len(needle) > len(words) {
			continue
		}
		for i := 0; i+len(needle) <= len(words); i++ {
			if slices.Equal(words[i:i+len(needle)], needle) {
				return phrase, true
			}
		}
	}
	return "", false
}
