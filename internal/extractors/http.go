package extractors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/miradorstack/realitycheck/internal/models"
)

// ExtractRequest is the body posted to a remote extraction service.
type ExtractRequest struct {
	InputText string `json:"input_text"`
}

// HTTPExtractor delegates extraction to a remote service that answers with
// a RawFields document.
type HTTPExtractor struct {
	endpoint   string
	httpClient *http.Client
}

// NewHTTPExtractor targets baseURL joined with extractPath.
func NewHTTPExtractor(baseURL, extractPath string, timeout time.Duration) *HTTPExtractor {
	return &HTTPExtractor{
		endpoint: resolvePath(strings.TrimRight(baseURL, "/"), extractPath),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Extract posts the text and decodes the field document.
func (e *HTTPExtractor) Extract(ctx context.Context, text string) (models.PartialFields, error) {
	if e == nil || e.endpoint == "" {
		return models.PartialFields{}, fmt.Errorf("extraction service base URL not configured")
	}
	if strings.TrimSpace(text) == "" {
		return models.NewPartialFields(), nil
	}

	body, err := e.postJSON(ctx, ExtractRequest{InputText: text})
	if err != nil {
		if ctx.Err() != nil {
			return models.PartialFields{}, ctx.Err()
		}
		return models.PartialFields{}, err
	}
	return decodeRawFields(body)
}

func (e *HTTPExtractor) postJSON(ctx context.Context, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extraction service request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		// The service understood the request and refused the text.
		return nil, &models.ExtractionError{
			Reason: "extraction service rejected the input",
			Err:    fmt.Errorf("extraction service returned %s", resp.Status),
		}
	default:
		return nil, fmt.Errorf("extraction service returned %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return data, nil
}

func resolvePath(baseURL, p string) string {
	if baseURL == "" {
		return ""
	}
	cleaned := "/" + strings.TrimLeft(p, "/")
	u, err := url.Parse(baseURL)
	if err != nil {
		return baseURL + cleaned
	}
	u.Path = path.Join(u.Path, cleaned)
	return u.String()
}
