package extractors

import (
	"context"
	"errors"
	"strings"
	"testing"

	"google.golang.org/genai"

	"github.com/miradorstack/realitycheck/internal/models"
)

type fakeGenerator struct {
	reply  string
	err    error
	model  string
	prompt string
	config *genai.GenerateContentConfig
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.config = config
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.prompt = contents[0].Parts[0].Text
	}
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: f.reply}}},
		}},
	}, nil
}

func TestGeminiExtractorDecodesReply(t *testing.T) {
	gen := &fakeGenerator{reply: `{"target_user":"freelance consultants of all types","primary_channel_type":"Community","top_risks":["churn",""],"pivots":["target_user"]}`}
	ex := newGeminiExtractor(gen, GeminiConfig{})

	got, err := ex.Extract(context.Background(), "We now serve freelance consultants of all types via communities")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if gen.model != defaultGeminiModel {
		t.Fatalf("model = %q", gen.model)
	}
	if gen.config == nil || gen.config.ResponseMIMEType != "application/json" {
		t.Fatalf("expected JSON response mode, got %+v", gen.config)
	}
	if !strings.Contains(gen.prompt, "freelance consultants of all types") || !strings.Contains(gen.prompt, `"product_led"`) {
		t.Fatalf("prompt missing input or channel enum:\n%s", gen.prompt)
	}
	if got.Text[models.FieldTargetUser] != "freelance consultants of all types" {
		t.Fatalf("target_user = %q", got.Text[models.FieldTargetUser])
	}
	if got.Text[models.FieldPrimaryChannelType] != "community" {
		t.Fatalf("channel not normalised: %q", got.Text[models.FieldPrimaryChannelType])
	}
	if len(got.Lists[models.FieldTopRisks]) != 1 {
		t.Fatalf("blank risks not dropped: %v", got.Lists[models.FieldTopRisks])
	}
	if !got.Pivots.Has(models.FieldTargetUser) {
		t.Fatalf("pivot not carried")
	}
}

func TestGeminiExtractorFencedReply(t *testing.T) {
	gen := &fakeGenerator{reply: "```json\n{\"problem\":\"late invoices\"}\n```"}
	got, err := newGeminiExtractor(gen, GeminiConfig{Model: "gemini-test"}).Extract(context.Background(), "late invoices")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if got.Text[models.FieldProblem] != "late invoices" || gen.model != "gemini-test" {
		t.Fatalf("unexpected result %+v with model %q", got, gen.model)
	}
}

func TestGeminiExtractorUnusableReply(t *testing.T) {
	cases := map[string]*fakeGenerator{
		"prose": {reply: "Sure! Here is the analysis you asked for."},
		"empty": {reply: ""},
	}
	for name, gen := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := newGeminiExtractor(gen, GeminiConfig{}).Extract(context.Background(), "some text")
			if !errors.Is(err, models.ErrExtraction) {
				t.Fatalf("expected ErrExtraction, got %v", err)
			}
		})
	}
}

func TestGeminiExtractorRequestFailureIsNotInputError(t *testing.T) {
	quota := errors.New("quota exceeded")
	_, err := newGeminiExtractor(&fakeGenerator{err: quota}, GeminiConfig{}).Extract(context.Background(), "some text")
	if !errors.Is(err, quota) {
		t.Fatalf("expected wrapped request error, got %v", err)
	}
	if errors.Is(err, models.ErrExtraction) {
		t.Fatalf("request failure must not be reported as unusable input: %v", err)
	}
}

func TestGeminiExtractorSkipsBlankText(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("must not be called")}
	got, err := newGeminiExtractor(gen, GeminiConfig{}).Extract(context.Background(), " ")
	if err != nil || got.Usable() != 0 {
		t.Fatalf("expected empty result, got %+v, %v", got, err)
	}
}
