// Package llm provides LLM client interfaces and implementations.
package llm

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/eduresolve/support-platform/pkg/metrics"
	"github.com/eduresolve/support-platform/pkg/tracing"
)

// CompletionRequest represents a completion request.
type CompletionRequest struct {
	Model       string
	System      string
	Messages    []ChatMessage
	MaxTokens   int
	Temperature float64
	// JSON asks the provider for a bare JSON object.
	JSON bool
	// Purpose labels metrics, e.g. "analysis" or "suggestions".
	Purpose string
}

// ChatMessage represents a chat message for LLM.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionResponse represents a completion response.
type CompletionResponse struct {
	Content    string
	Model      string
	TokensIn   int
	TokensOut  int
	StopReason string
	LatencyMs  int64
}

// Client is the interface for LLM providers.
type Client interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Name returns the provider name.
	Name() string
}

// Provider is the type of LLM provider.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderGemini    Provider = "gemini"
)

const defaultMaxTokens = 1024

// NewClient creates a new LLM client based on provider.
func NewClient(ctx context.Context, provider Provider, apiKey string) (Client, error) {
	switch provider {
	case ProviderAnthropic:
		return NewAnthropicClient(apiKey)
	case ProviderOpenAI:
		return NewOpenAIClient(apiKey)
	case ProviderGemini:
		return NewGeminiClient(ctx, apiKey)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %q", provider)
	}
}

// Instrumented wraps a client with tracing spans and Prometheus metrics.
type Instrumented struct {
	next Client
}

// Instrument decorates c.
func Instrument(c Client) *Instrumented {
	return &Instrumented{next: c}
}

// Name returns the wrapped provider name.
func (i *Instrumented) Name() string {
	return i.next.Name()
}

// Complete forwards to the wrapped client and records the call.
func (i *Instrumented) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	ctx, span := tracing.Start(ctx, "llm.complete")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.provider", i.next.Name()),
		attribute.String("llm.purpose", req.Purpose),
	)

	start := time.Now()
	resp, err := i.next.Complete(ctx, req)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.RecordLLMCall(i.next.Name(), req.Purpose, "error", "", elapsed, 0, 0)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("llm.model", resp.Model),
		attribute.Int("llm.tokens_in", resp.TokensIn),
		attribute.Int("llm.tokens_out", resp.TokensOut),
	)
	metrics.RecordLLMCall(i.next.Name(), req.Purpose, "ok", resp.Model, elapsed, resp.TokensIn, resp.TokensOut)
	return resp, nil
}
