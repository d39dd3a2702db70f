package engine

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/miradorstack/realitycheck/internal/models"
)

func review(dim models.Dimension, sev models.Severity) models.DimensionReview {
	return models.DimensionReview{Dimension: dim, Severity: sev}
}

func experimentDimensions(exps []models.Experiment) []models.Dimension {
	out := make([]models.Dimension, 0, len(exps))
	for _, e := range exps {
		out = append(out, e.Dimension)
	}
	return out
}

func TestPlanNothingWhenAllOKOrMinor(t *testing.T) {
	reviews := []models.DimensionReview{
		review(models.DimensionProblemClarity, models.SeverityOK),
		review(models.DimensionUserDefinition, models.SeverityMinor),
		review(models.DimensionFeasibility, models.SeverityOK),
	}
	if got := NewPlanner(DefaultPolicy()).Plan(concreteSnapshot(), reviews); len(got) != 0 {
		t.Fatalf("expected no experiments, got %+v", got)
	}
}

func TestPlanOrdersBlockersFirst(t *testing.T) {
	reviews := []models.DimensionReview{
		review(models.DimensionProblemClarity, models.SeverityMajor),
		review(models.DimensionUserDefinition, models.SeverityOK),
		review(models.DimensionSolutionDefinition, models.SeverityBlocker),
		review(models.DimensionChannelViability, models.SeverityMinor),
		review(models.DimensionHypothesisValidity, models.SeverityBlocker),
		review(models.DimensionFeasibility, models.SeverityMajor),
	}
	got := experimentDimensions(NewPlanner(DefaultPolicy()).Plan(concreteSnapshot(), reviews))
	want := []models.Dimension{
		models.DimensionSolutionDefinition,
		models.DimensionHypothesisValidity,
		models.DimensionProblemClarity,
		models.DimensionFeasibility,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("experiment order mismatch (-want +got):\n%s", diff)
	}
}

func TestPlanAtMostOnePerDimension(t *testing.T) {
	reviews := []models.DimensionReview{
		review(models.DimensionFeasibility, models.SeverityMajor),
		review(models.DimensionFeasibility, models.SeverityBlocker),
	}
	if got := NewPlanner(DefaultPolicy()).Plan(concreteSnapshot(), reviews); len(got) != 1 {
		t.Fatalf("expected one experiment, got %d", len(got))
	}
}

func TestPlanChannelSelection(t *testing.T) {
	s := concreteSnapshot()
	s.PrimaryChannelType = "paid_ads"
	reviews := []models.DimensionReview{
		review(models.DimensionChannelViability, models.SeverityMajor),
		review(models.DimensionProblemClarity, models.SeverityMajor),
	}
	got := NewPlanner(DefaultPolicy()).Plan(s, reviews)
	if len(got) != 2 {
		t.Fatalf("expected 2 experiments, got %d", len(got))
	}
	if got[0].ChannelType != "customer_interviews" {
		t.Fatalf("problem experiment channel = %q, want generic channel", got[0].ChannelType)
	}
	if got[1].ChannelType != "paid_ads" {
		t.Fatalf("channel experiment channel = %q, want paid_ads", got[1].ChannelType)
	}
	if got[1].Title != "50-touch paid ads test" {
		t.Fatalf("title = %q", got[1].Title)
	}
}

func TestPlanFillsPlaceholdersWithFallbacks(t *testing.T) {
	s := models.StartupSnapshot{StartupID: "acme", Version: 1}
	reviews := NewEvaluator(DefaultPolicy()).Evaluate(s)
	got := NewPlanner(DefaultPolicy()).Plan(s, reviews)
	if len(got) != len(models.Dimensions()) {
		t.Fatalf("expected one experiment per blocker, got %d", len(got))
	}
	for _, exp := range got {
		if exp.ChannelType != "customer_interviews" {
			t.Fatalf("%s: channel %q, want generic channel when none declared", exp.Dimension, exp.ChannelType)
		}
		text := exp.Title + strings.Join(exp.Steps, " ") + exp.SuccessCriteria
		if strings.Contains(text, "{") {
			t.Fatalf("%s: unfilled placeholder in %q", exp.Dimension, text)
		}
		if len(exp.Steps) == 0 || exp.SuccessCriteria == "" || exp.TimeCost == "" {
			t.Fatalf("%s: incomplete experiment %+v", exp.Dimension, exp)
		}
	}
}
