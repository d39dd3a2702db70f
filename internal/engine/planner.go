package engine

import (
	"slices"
	"strings"

	"github.com/miradorstack/realitycheck/internal/models"
)

// Planner turns blocker and major reviews into validation experiments.
type Planner struct {
	policy Policy
}

// NewPlanner constructs a Planner from a validated policy.
func NewPlanner(policy Policy) *Planner {
	return &Planner{policy: policy}
}

// Plan returns at most one experiment per blocker or major review, ordered
// blocker first and then by dimension order. Minor and ok reviews produce
// nothing.
func (p *Planner) Plan(snapshot models.StartupSnapshot, reviews []models.DimensionReview) []models.Experiment {
	candidates := make([]models.DimensionReview, 0, len(reviews))
	seen := make(map[models.Dimension]bool, len(reviews))
	for _, review := range reviews {
		if review.Severity.Rank() < models.SeverityMajor.Rank() || seen[review.Dimension] {
			continue
		}
		seen[review.Dimension] = true
		candidates = append(candidates, review)
	}
	slices.SortStableFunc(candidates, func(a, b models.DimensionReview) int {
		if ra, rb := a.Severity.Rank(), b.Severity.Rank(); ra != rb {
			return rb - ra
		}
		return a.Dimension.Order() - b.Dimension.Order()
	})

	experiments := make([]models.Experiment, 0, len(candidates))
	for _, review := range candidates {
		tmpl, ok := p.policy.Experiments[review.Dimension]
		if !ok {
			continue
		}
		channel := p.channelFor(snapshot, review.Dimension)
		fill := placeholders(snapshot, channel)
		steps := make([]string, 0, len(tmpl.Steps))
		for _, step := range tmpl.Steps {
			steps = append(steps, fill.Replace(step))
		}
		experiments = append(experiments, models.Experiment{
			Title:           fill.Replace(tmpl.Title),
			ChannelType:     channel,
			Steps:           steps,
			SuccessCriteria: fill.Replace(tmpl.SuccessCriteria),
			TimeCost:        tmpl.TimeCost,
			Dimension:       review.Dimension,
		})
	}
	return experiments
}

func (p *Planner) channelFor(snapshot models.StartupSnapshot, dim models.Dimension) string {
	if dim.ConcernsChannel() {
		if ct, ok := models.ParseChannelType(snapshot.PrimaryChannelType); ok {
			return string(ct)
		}
	}
	if p.policy.GenericChannel != "" {
		return p.policy.GenericChannel
	}
	return string(models.ChannelCustomerInterviews)
}

func placeholders(s models.StartupSnapshot, channel string) *strings.Replacer {
	return strings.NewReplacer(
		"{target_user}", orDefault(s.TargetUser, "your target users"),
		"{problem}", orDefault(s.Problem, "the problem you believe they have"),
		"{solution}", orDefault(s.Solution, "your proposed solution"),
		"{channel}", strings.ReplaceAll(channel, "_", " "),
		"{metric}", orDefault(s.Metric, "one behaviour metric"),
		"{timeframe}", orDefault(s.Timeframe, "two weeks"),
	)
}

func orDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}
