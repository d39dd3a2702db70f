package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/miradorstack/realitycheck/internal/models"
)

// Policy holds the tunable thresholds and experiment templates used by the
// evaluator and planner. The dimension list and rule shape are fixed; only
// the numbers and wording come from here.
type Policy struct {
	Dimensions     map[models.Dimension]DimensionPolicy    `yaml:"dimensions"`
	Experiments    map[models.Dimension]ExperimentTemplate `yaml:"experiments"`
	GenericChannel string                                  `yaml:"generic_channel"`
}

// DimensionPolicy configures the vagueness checks of one dimension.
type DimensionPolicy struct {
	// MajorBelowWords flags text shorter than this many words as major.
	MajorBelowWords int `yaml:"major_below_words"`
	// MinorBelowWords flags text shorter than this many words as minor.
	MinorBelowWords int `yaml:"minor_below_words"`
	// VagueTerms are whole answers that are too generic ("startups").
	VagueTerms []string `yaml:"vague_terms"`
	// VaguePhrases are word sequences that make any answer vague ("go viral").
	VaguePhrases []string `yaml:"vague_phrases"`
}

// ExperimentTemplate is the blueprint of an experiment for one dimension.
// Title and steps may reference {target_user}, {problem}, {solution},
// {channel}, {metric} and {timeframe}.
type ExperimentTemplate struct {
	Title           string   `yaml:"title"`
	Steps           []string `yaml:"steps"`
	SuccessCriteria string   `yaml:"success_criteria"`
	TimeCost        string   `yaml:"time_cost"`
}

// PolicyFile is the YAML root structure of a policy pack.
type PolicyFile struct {
	Policy Policy `yaml:"policy"`
}

// DefaultPolicy returns the built-in thresholds and templates.
func DefaultPolicy() Policy {
	return Policy{
		GenericChannel: string(models.ChannelCustomerInterviews),
		Dimensions: map[models.Dimension]DimensionPolicy{
			models.DimensionProblemClarity: {
				MajorBelowWords: 5,
				MinorBelowWords: 10,
				VaguePhrases:    []string{"everything", "all problems", "make life easier"},
			},
			models.DimensionUserDefinition: {
				MajorBelowWords: 2,
				MinorBelowWords: 4,
				VagueTerms: []string{
					"people", "users", "customers", "consumers", "startups",
					"students", "businesses", "companies", "small businesses", "developers",
				},
				VaguePhrases: []string{"anyone", "everyone", "everybody", "all types", "all kinds"},
			},
			models.DimensionSolutionDefinition: {
				MajorBelowWords: 4,
				MinorBelowWords: 8,
				VaguePhrases:    []string{"ai powered platform", "all in one", "super app"},
			},
			models.DimensionChannelViability: {
				MajorBelowWords: 3,
				MinorBelowWords: 6,
				VaguePhrases: []string{
					"go viral", "social media", "word of mouth", "marketing", "seo", "influencers",
				},
			},
			models.DimensionHypothesisValidity: {
				MajorBelowWords: 6,
				MinorBelowWords: 12,
				VaguePhrases: []string{
					"likes", "views", "page views", "followers", "impressions", "downloads",
					"traffic", "app installs",
				},
			},
			models.DimensionFeasibility: {
				MajorBelowWords: 3,
				MinorBelowWords: 6,
			},
		},
		Experiments: map[models.Dimension]ExperimentTemplate{
			models.DimensionProblemClarity: {
				Title: "Problem interviews with {target_user}",
				Steps: []string{
					"List 10 people who match {target_user}",
					"Ask each to describe the last time they hit: {problem}",
					"Do not pitch; record the workaround they use today",
					"Tally how many raise the problem before you prompt it",
				},
				SuccessCriteria: "7 of 10 describe the problem unprompted and name a current workaround",
				TimeCost:        "1 week",
			},
			models.DimensionUserDefinition: {
				Title: "Segment comparison through {channel}",
				Steps: []string{
					"Write down 3 narrower segments inside {target_user} (role, context, behaviour)",
					"Reach 10 people per segment through {channel}",
					"Ask the same two pain questions to every segment",
					"Compare reply rate and pain intensity per segment",
				},
				SuccessCriteria: "One segment shows at least twice the reply rate of the others",
				TimeCost:        "1 week",
			},
			models.DimensionSolutionDefinition: {
				Title: "Concierge test of {solution}",
				Steps: []string{
					"Describe the outcome the solution delivers in one sentence",
					"Deliver that outcome by hand to 5 people from {target_user}",
					"Ask each for a paid pilot or a pre-order at the end",
				},
				SuccessCriteria: "3 of 5 agree to pay or pre-order",
				TimeCost:        "2 weeks",
			},
			models.DimensionChannelViability: {
				Title: "50-touch {channel} test",
				Steps: []string{
					"Pick one concrete place inside {channel} where {target_user} already gathers",
					"Write one message that states the problem and asks for a call",
					"Send or post it 50 times without changing the message",
					"Track replies and booked calls in a sheet",
				},
				SuccessCriteria: "At least 10% reply rate and 3 booked calls",
				TimeCost:        "1 week",
			},
			models.DimensionHypothesisValidity: {
				Title: "One-metric hypothesis test",
				Steps: []string{
					"Rewrite as: For {target_user}, if we offer {solution} through {channel}, then within {timeframe} we expect a measurable change in {metric}",
					"Replace vanity numbers with a behaviour metric (paid, retained, activated)",
					"Set the pass threshold before running",
					"Measure once at the deadline and record the result",
				},
				SuccessCriteria: "Hypothesis has a behaviour metric, a threshold and a deadline, and one measurement exists",
				TimeCost:        "3 days",
			},
			models.DimensionFeasibility: {
				Title: "Technical spike on the riskiest assumption",
				Steps: []string{
					"Name the single component most likely to fail",
					"Build the smallest prototype that exercises it",
					"Write down what worked, what did not, and the cost to finish",
				},
				SuccessCriteria: "The prototype answers the top technical risk inside the timebox",
				TimeCost:        "3 days",
			},
		},
	}
}

// LoadPolicy reads a policy pack from path and overlays it onto the defaults.
// An empty path or a missing file yields the defaults.
func LoadPolicy(path string, logger *slog.Logger) (Policy, error) {
	policy := DefaultPolicy()
	if path == "" {
		return policy, nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("policy pack not found, using defaults", slog.String("path", path))
			return policy, nil
		}
		return Policy{}, fmt.Errorf("read policy: %w", err)
	}
	var file PolicyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Policy{}, fmt.Errorf("parse policy: %w", err)
	}
	policy.overlay(file.Policy)
	if err := policy.Validate(); err != nil {
		return Policy{}, err
	}
	logger.Info("policy pack loaded", slog.String("path", path))
	return policy, nil
}

// Validate checks that every dimension is configured coherently.
func (p Policy) Validate() error {
	for _, dim := range models.Dimensions() {
		dp, ok := p.Dimensions[dim]
		if !ok {
			return fmt.Errorf("policy: dimension %s not configured", dim)
		}
		if dp.MajorBelowWords < 0 || dp.MinorBelowWords < dp.MajorBelowWords {
			return fmt.Errorf("policy: dimension %s needs 0 <= major_below_words <= minor_below_words", dim)
		}
		tmpl, ok := p.Experiments[dim]
		if !ok || strings.TrimSpace(tmpl.Title) == "" || len(tmpl.Steps) == 0 {
			return fmt.Errorf("policy: experiment template for %s needs a title and steps", dim)
		}
	}
	for dim := range p.Dimensions {
		if dim.Order() < 0 {
			return fmt.Errorf("policy: unknown dimension %q", dim)
		}
	}
	return nil
}

func (p *Policy) overlay(in Policy) {
	if in.GenericChannel != "" {
		p.GenericChannel = in.GenericChannel
	}
	for dim, override := range in.Dimensions {
		base := p.Dimensions[dim]
		if override.MajorBelowWords > 0 {
			base.MajorBelowWords = override.MajorBelowWords
		}
		if override.MinorBelowWords > 0 {
			base.MinorBelowWords = override.MinorBelowWords
		}
		if override.VagueTerms != nil {
			base.VagueTerms = override.VagueTerms
		}
		if override.VaguePhrases != nil {
			base.VaguePhrases = override.VaguePhrases
		}
		p.Dimensions[dim] = base
	}
	for dim, override := range in.Experiments {
		base := p.Experiments[dim]
		if override.Title != "" {
			base.Title = override.Title
		}
		if len(override.Steps) > 0 {
			base.Steps = override.Steps
		}
		if override.SuccessCriteria != "" {
			base.SuccessCriteria = override.SuccessCriteria
		}
		if override.TimeCost != "" {
			base.TimeCost = override.TimeCost
		}
		p.Experiments[dim] = base
	}
}
