package extractors

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestFromPartialSurvivesToPartial(t *testing.T) {
	text := `problem: invoices go unpaid
channel: community
risks: churn; pricing
pivot: problem`
	parsed, err := NewLabeledExtractor().Extract(context.Background(), text)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	raw := FromPartial(parsed)
	if raw.PrimaryChannelType != "community" || len(raw.Pivots) != 1 || raw.Pivots[0] != "problem" {
		t.Fatalf("unexpected raw document: %+v", raw)
	}

	back, err := ToPartial(raw)
	if err != nil {
		t.Fatalf("to partial: %v", err)
	}
	if diff := cmp.Diff(parsed, back, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("fields changed on the way back (-want +got):\n%s", diff)
	}
}
