package coach

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/yanqian/ai-fitcoach/pkg/metrics"
)

// InlineData is binary content sent alongside the prompt, such as a photo.
type InlineData struct {
	MIMEType string
	Data     []byte
}

// GenerateRequest is a single text generation call.
type GenerateRequest struct {
	Model       string
	System      string
	Prompt      string
	Temperature float32
	Inline      *InlineData
	// JSON asks the upstream to constrain output to a JSON document when it supports it.
	JSON bool
}

// GenerateResult is the raw answer of a generation call.
type GenerateResult struct {
	Text  string
	Usage metrics.TokenUsage
}

// Generator is implemented by model clients.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResult, error)
}

// ModelCall reports which model actually produced Text.
type ModelCall struct {
	Text      string
	ModelUsed string
	Usage     metrics.TokenUsage
}

// CallWithFallback calls primary once. If that fails because the model does not
// exist and secondary is a different, non-empty model, secondary is called once.
// Every other failure is returned unchanged.
func CallWithFallback(ctx context.Context, gen Generator, primary, secondary string, req GenerateRequest) (ModelCall, error) {
	req.Model = primary
	res, err := gen.Generate(ctx, req)
	if err == nil {
		return ModelCall{Text: res.Text, ModelUsed: primary, Usage: res.Usage}, nil
	}
	secondary = strings.TrimSpace(secondary)
	if secondary == "" || secondary == primary || !IsModelNotFound(err) {
		return ModelCall{}, err
	}

	req.Model = secondary
	res, err = gen.Generate(ctx, req)
	if err != nil {
		return ModelCall{}, err
	}
	return ModelCall{Text: res.Text, ModelUsed: secondary, Usage: res.Usage}, nil
}

// UpstreamError is a model provider failure with whatever structure the client
// could recover. Status is the HTTP status, 0 when unknown.
type UpstreamError struct {
	Status  int
	Reason  string
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status == 0 {
		return "upstream: " + msg
	}
	return fmt.Sprintf("upstream %d: %s", e.Status, msg)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Category is the caller-facing class of a transport failure.
type Category string

const (
	CategoryTimeout     Category = "timeout"
	CategoryRateLimited Category = "rate_limited"
	CategoryAuthFailed  Category = "upstream_auth_failed"
	CategoryNotFound    Category = "not_found"
	CategoryUpstream    Category = "upstream_error"
)

// IsModelNotFound reports whether err means the requested model does not exist.
func IsModelNotFound(err error) bool {
	if err == nil {
		return false
	}
	var upstream *UpstreamError
	if errors.As(err, &upstream) && upstream.Status != 0 {
		return upstream.Status == http.StatusNotFound
	}
	return strings.Contains(strings.ToLower(err.Error()), "not found")
}

// Classify maps a transport failure to a Category. Structured information
// wins; message matching is a best-effort last resort.
func Classify(err error) Category {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTimeout
	}
	var upstream *UpstreamError
	if errors.As(err, &upstream) && upstream.Status != 0 {
		switch upstream.Status {
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			return CategoryTimeout
		case http.StatusTooManyRequests:
			return CategoryRateLimited
		case http.StatusUnauthorized, http.StatusForbidden:
			return CategoryAuthFailed
		case http.StatusNotFound:
			return CategoryNotFound
		default:
			return CategoryUpstream
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "timeout", "timed out", "deadline exceeded"):
		return CategoryTimeout
	case containsAny(msg, "rate limit", "too many requests", "resource_exhausted", "quota"):
		return CategoryRateLimited
	case containsAny(msg, "api key", "unauthorized", "permission_denied", "unauthenticated", "forbidden"):
		return CategoryAuthFailed
	case strings.Contains(msg, "not found"):
		return CategoryNotFound
	default:
		return CategoryUpstream
	}
}

func containsAny(s string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}
