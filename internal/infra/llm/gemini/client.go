package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/yanqian/ai-fitcoach/internal/domain/coach"
	"github.com/yanqian/ai-fitcoach/pkg/metrics"
)

// Client generates text with the Gemini API.
type Client struct {
	models modelsAPI
}

// modelsAPI is the subset of genai.Models used by Client.
type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// NewClient constructs a Gemini client.
func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini api key cannot be empty")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("init gemini client: %w", err)
	}
	return &Client{models: client.Models}, nil
}

// Generate implements coach.Generator.
func (c *Client) Generate(ctx context.Context, req coach.GenerateRequest) (coach.GenerateResult, error) {
	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	if req.Inline != nil && len(req.Inline.Data) > 0 {
		parts = append(parts, genai.NewPartFromBytes(req.Inline.Data, req.Inline.MIMEType))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(req.Temperature),
	}
	if strings.TrimSpace(req.System) != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.JSON {
		cfg.ResponseMIMEType = "application/json"
	}

	resp, err := c.models.GenerateContent(ctx, req.Model, contents, cfg)
	if err != nil {
		return coach.GenerateResult{}, translateError(err)
	}
	if resp == nil {
		return coach.GenerateResult{}, &coach.UpstreamError{Message: "gemini returned no response"}
	}

	return coach.GenerateResult{
		Text:  resp.Text(),
		Usage: usageFrom(resp.UsageMetadata),
	}, nil
}

func usageFrom(meta *genai.GenerateContentResponseUsageMetadata) metrics.TokenUsage {
	if meta == nil {
		return metrics.TokenUsage{}
	}
	return metrics.TokenUsage{
		PromptTokens:     int(meta.PromptTokenCount),
		CompletionTokens: int(meta.CandidatesTokenCount),
		TotalTokens:      int(meta.TotalTokenCount),
	}
}

// translateError exposes the HTTP status of API failures so callers can
// classify them without matching on message text.
func translateError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("gemini request: %w", err)
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &coach.UpstreamError{
			Status:  apiErr.Code,
			Reason:  apiErr.Status,
			Message: apiErr.Message,
			Err:     err,
		}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &coach.UpstreamError{
			Status:  apiErrPtr.Code,
			Reason:  apiErrPtr.Status,
			Message: apiErrPtr.Message,
			Err:     err,
		}
	}
	return &coach.UpstreamError{Message: err.Error(), Err: err}
}

var _ coach.Generator = (*Client)(nil)
