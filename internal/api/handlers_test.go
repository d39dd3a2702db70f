package api

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/realitycheck/internal/models"
)

func TestFromProtoAnalyzeRequest(t *testing.T) {
	req, err := ToProtoAnalyzeRequest(models.AnalyzeRequest{StartupID: "acme", InputText: "problem: invoices"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := FromProtoAnalyzeRequest(req)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.StartupID != "acme" || got.InputText != "problem: invoices" {
		t.Fatalf("unexpected request: %+v", got)
	}
}

func TestFromProtoRequestNil(t *testing.T) {
	if _, err := FromProtoAnalyzeRequest(nil); err == nil {
		t.Fatalf("expected error for nil request")
	}
	if _, err := FromProtoHistoryRequest(nil); err == nil {
		t.Fatalf("expected error for nil request")
	}
}

func TestAnalysisResponseDocument(t *testing.T) {
	after := "HR managers in Series B companies"
	resp := models.AnalysisResponse{
		Snapshot: models.StartupSnapshot{
			StartupID:         "acme",
			Version:           2,
			Timestamp:         time.Date(2026, 5, 1, 9, 30, 0, 123000000, time.UTC),
			TargetUser:        after,
			TopRisks:          []string{"churn"},
			DeclaredNextSteps: []string{},
		},
		DimensionReviews: []models.DimensionReview{
			{Dimension: models.DimensionUserDefinition, Severity: models.SeverityOK},
		},
		Experiments: []models.Experiment{},
		Drift: []models.DriftItem{
			{Field: models.FieldTargetUser, After: &after, Classification: models.DriftMajorChange},
		},
		Status: models.StatusOK,
	}

	doc, err := ToProtoAnalysisResponse(resp)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	drift := doc.GetFields()["drift"].GetListValue().GetValues()
	if len(drift) != 1 {
		t.Fatalf("expected one drift item, got %d", len(drift))
	}
	item := drift[0].GetStructValue().GetFields()
	if _, isNull := item["before"].GetKind().(*structpb.Value_NullValue); !isNull {
		t.Fatalf("before should be an explicit null, got %v", item["before"])
	}

	back, err := FromProtoAnalysisResponse(doc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff(resp, back); diff != "" {
		t.Fatalf("response changed on the wire (-want +got):\n%s", diff)
	}
}
