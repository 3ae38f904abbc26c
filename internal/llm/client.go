// Package llm provides the AI chat contract and its provider implementations.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/docbot/docbot/pkg/logger"
)

var (
	// ErrMissingContent is returned when a provider answers without text.
	ErrMissingContent = errors.New("AI response missing output content")
	// ErrNotConfigured is returned when no credential is available.
	ErrNotConfigured = errors.New("AI client is not configured")
)

// StatusError is a non-success HTTP answer from an AI endpoint.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("AI request failed with status %d", e.Code)
	}
	return fmt.Sprintf("AI request failed with status %d: %s", e.Code, e.Message)
}

// CompletionRequest represents a chat completion request.
type CompletionRequest struct {
	Model     string
	Messages  []ChatMessage
	MaxTokens int
	// Meta is forwarded to providers that accept request metadata.
	Meta map[string]string
}

// ChatMessage represents a chat message for the AI service.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionResponse represents a completion response.
type CompletionResponse struct {
	Content   string
	Model     string
	LatencyMs int64
}

// Client is the interface for AI providers.
type Client interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// Name returns the provider name.
	Name() string
}

// Provider is the type of AI provider.
type Provider string

const (
	ProviderGateway   Provider = "gateway"
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

// Options configures NewClient.
type Options struct {
	Provider   Provider
	Endpoint   string
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// NewClient creates a provider client wrapped with timeout and retry handling.
func NewClient(opts Options, log *logger.Logger) (Client, error) {
	var (
		inner Client
		err   error
	)

	switch opts.Provider {
	case ProviderAnthropic:
		inner, err = NewAnthropicClient(opts.APIKey, opts.Model)
	case ProviderOpenAI:
		inner, err = NewOpenAIClient(opts.APIKey, opts.Endpoint, opts.Model)
	case ProviderGateway, "":
		inner, err = NewGatewayClient(opts.Endpoint, opts.APIKey, opts.Model)
	default:
		return nil, fmt.Errorf("unknown AI provider %q", opts.Provider)
	}
	if err != nil {
		return nil, err
	}

	return NewRetryClient(inner, RetryOptions{
		MaxRetries: opts.MaxRetries,
		Timeout:    opts.Timeout,
	}, log), nil
}

type disabledClient struct {
	reason string
}

// Disabled returns a client that fails every call with ErrNotConfigured.
func Disabled(reason string) Client {
	return disabledClient{reason: reason}
}

func (c disabledClient) Name() string {
	return "disabled"
}

func (c disabledClient) Complete(context.Context, *CompletionRequest) (*CompletionResponse, error) {
	return nil, fmt.Errorf("%w: %s", ErrNotConfigured, c.reason)
}
