package extractors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/miradorstack/realitycheck/internal/models"
)

const defaultGeminiModel = "gemini-2.0-flash"

// generator is the slice of the genai Models service the extractor uses.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiConfig configures the Gemini-backed extractor.
type GeminiConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// GeminiExtractor asks a Gemini model for the fields in JSON mode.
type GeminiExtractor struct {
	models  generator
	model   string
	timeout time.Duration
}

// NewGeminiExtractor creates a genai client for the Gemini API.
func NewGeminiExtractor(ctx context.Context, cfg GeminiConfig) (*GeminiExtractor, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return newGeminiExtractor(client.Models, cfg), nil
}

func newGeminiExtractor(gen generator, cfg GeminiConfig) *GeminiExtractor {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiExtractor{models: gen, model: model, timeout: cfg.Timeout}
}

// Extract sends one prompt and decodes the JSON reply.
func (e *GeminiExtractor) Extract(ctx context.Context, text string) (models.PartialFields, error) {
	if strings.TrimSpace(text) == "" {
		return models.NewPartialFields(), nil
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	resp, err := e.models.GenerateContent(ctx, e.model, genai.Text(extractionPrompt(text)), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   rawFieldsSchema(),
		Temperature:      genai.Ptr[float32](0),
	})
	if err != nil {
		if ctx.Err() != nil {
			return models.PartialFields{}, ctx.Err()
		}
		return models.PartialFields{}, fmt.Errorf("gemini request failed: %w", err)
	}
	return decodeRawFields([]byte(resp.Text()))
}

// decodeRawFields parses a backend JSON reply. Model replies occasionally
// come wrapped in a markdown fence even in JSON mode.
func decodeRawFields(body []byte) (models.PartialFields, error) {
	payload := strings.TrimSpace(string(body))
	payload = strings.TrimPrefix(payload, "```json")
	payload = strings.TrimPrefix(payload, "```")
	payload = strings.TrimSuffix(payload, "```")
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return models.PartialFields{}, &models.ExtractionError{Reason: "empty reply"}
	}

	var raw RawFields
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return models.PartialFields{}, &models.ExtractionError{Reason: "reply is not a field document", Err: err}
	}
	return ToPartial(raw)
}

func extractionPrompt(text string) string {
	channels := make([]string, 0, len(models.ChannelTypes()))
	for _, ct := range models.ChannelTypes() {
		channels = append(channels, fmt.Sprintf("%q", ct))
	}

	var b strings.Builder
	b.WriteString("You are an expert startup analyst. A founder describes their startup or an update to it.\n")
	b.WriteString("Extract only what the text states or clearly implies. Omit anything it does not mention; never invent values.\n\n")
	b.WriteString("Fields:\n")
	b.WriteString("- problem: the core problem being solved\n")
	b.WriteString("- target_user: who the user is, kept close to the founder's words\n")
	b.WriteString("- job_to_be_done: what the user is trying to achieve\n")
	b.WriteString("- solution: the proposed solution\n")
	b.WriteString("- value_prop: the core value proposition\n")
	fmt.Fprintf(&b, "- primary_channel_type: one of [%s]; the dominant one if several, omitted if none\n", strings.Join(channels, ", "))
	b.WriteString("- primary_channel_description: specifics of how the channel will be used\n")
	b.WriteString("- hypothesis: the core hypothesis if stated\n")
	b.WriteString("- metric: the key metric mentioned or implied\n")
	b.WriteString("- timeframe: the timeframe mentioned or implied\n")
	b.WriteString("- tech_feasibility_notes: technical risks or notes\n")
	b.WriteString("- top_risks: list of the top risks\n")
	b.WriteString("- declared_next_steps: list of next steps mentioned\n")
	b.WriteString("- pivots: names of the fields above that the founder redirects to something substantively different (a new audience, problem or approach), not mere rewording\n\n")
	b.WriteString("Founder text:\n\"\"\"\n")
	b.WriteString(text)
	b.WriteString("\n\"\"\"\n\nOutput strictly valid JSON.")
	return b.String()
}

func rawFieldsSchema() *genai.Schema {
	str := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeString, Description: desc}
	}
	list := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeArray, Description: desc, Items: &genai.Schema{Type: genai.TypeString}}
	}
	channels := make([]string, 0, len(models.ChannelTypes()))
	for _, ct := range models.ChannelTypes() {
		channels = append(channels, string(ct))
	}
	fields := make([]string, 0, len(models.CanonicalFields()))
	for _, f := range models.CanonicalFields() {
		fields = append(fields, string(f))
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"problem":                     str("core problem"),
			"target_user":                 str("who the user is"),
			"job_to_be_done":              str("what the user is trying to achieve"),
			"solution":                    str("proposed solution"),
			"value_prop":                  str("core value proposition"),
			"primary_channel_type":        {Type: genai.TypeString, Enum: channels},
			"primary_channel_description": str("channel specifics"),
			"hypothesis":                  str("core hypothesis"),
			"metric":                      str("key metric"),
			"timeframe":                   str("timeframe"),
			"tech_feasibility_notes":      str("technical notes"),
			"top_risks":                   list("top risks"),
			"declared_next_steps":         list("next steps"),
			"pivots": {
				Type:  genai.TypeArray,
				Items: &genai.Schema{Type: genai.TypeString, Enum: fields},
			},
		},
	}
}
