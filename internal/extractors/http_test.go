package extractors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/miradorstack/realitycheck/internal/models"
)

func TestHTTPExtractorPostsText(t *testing.T) {
	ex := NewHTTPExtractor("https://extract.example.com/base/", "/v1/extract", time.Second)
	ex.httpClient = newTestClient(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/base/v1/extract" {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		var body ExtractRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.InputText != "problem: late invoices" {
			t.Fatalf("unexpected input: %q", body.InputText)
		}
		return jsonResponse(http.StatusOK, `{"problem":"late invoices","declared_next_steps":["call 5 designers"]}`), nil
	}))

	got, err := ex.Extract(context.Background(), "problem: late invoices")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if got.Text[models.FieldProblem] != "late invoices" || len(got.Lists[models.FieldDeclaredNextSteps]) != 1 {
		t.Fatalf("unexpected fields: %+v", got)
	}
}

func TestHTTPExtractorStatusMapping(t *testing.T) {
	cases := []struct {
		status    int
		wantInput bool
	}{
		{http.StatusBadRequest, true},
		{http.StatusUnprocessableEntity, true},
		{http.StatusBadGateway, false},
		{http.StatusServiceUnavailable, false},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			ex := NewHTTPExtractor("https://extract.example.com", "/v1/extract", time.Second)
			ex.httpClient = newTestClient(roundTripFunc(func(req *http.Request) (*http.Response, error) {
				return jsonResponse(tc.status, `{}`), nil
			}))
			_, err := ex.Extract(context.Background(), "anything")
			if err == nil {
				t.Fatalf("expected error for status %d", tc.status)
			}
			if got := errors.Is(err, models.ErrExtraction); got != tc.wantInput {
				t.Fatalf("status %d: errors.Is(err, ErrExtraction) = %v, want %v (%v)", tc.status, got, tc.wantInput, err)
			}
		})
	}
}

func TestHTTPExtractorTransportFailureIsNotInputError(t *testing.T) {
	ex := NewHTTPExtractor("https://extract.example.com", "/v1/extract", time.Second)
	ex.httpClient = newTestClient(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	}))
	_, err := ex.Extract(context.Background(), "anything")
	if err == nil || errors.Is(err, models.ErrExtraction) {
		t.Fatalf("expected a plain transport error, got %v", err)
	}
}

func TestHTTPExtractorRequiresBaseURL(t *testing.T) {
	_, err := NewHTTPExtractor("", "/v1/extract", time.Second).Extract(context.Background(), "text")
	if err == nil || errors.Is(err, models.ErrExtraction) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
