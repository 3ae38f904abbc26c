package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultGatewayEndpoint is the base URL used when none is configured.
const DefaultGatewayEndpoint = "https://api.cookmybots.com/api/ai"

// GatewayClient calls a hosted AI gateway exposing POST <base>/chat.
type GatewayClient struct {
	url        string
	apiKey     string
	model      string
	httpClient *http.Client
}

type gatewayRequest struct {
	Messages []ChatMessage     `json:"messages"`
	Model    string            `json:"model,omitempty"`
	Meta     map[string]string `json:"meta,omitempty"`
}

type gatewayResponse struct {
	Output *struct {
		Content *string `json:"content"`
	} `json:"output"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// NewGatewayClient creates a gateway client. The endpoint defaults to
// DefaultGatewayEndpoint.
func NewGatewayClient(endpoint, apiKey, model string) (*GatewayClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: AI_API_KEY missing", ErrNotConfigured)
	}
	if endpoint == "" {
		endpoint = DefaultGatewayEndpoint
	}

	return &GatewayClient{
		url:    strings.TrimRight(strings.TrimSpace(endpoint), "/") + "/chat",
		apiKey: apiKey,
		model:  model,
		// Deadlines come from the caller's context.
		httpClient: &http.Client{},
	}, nil
}

// Name returns the provider name.
func (c *GatewayClient) Name() string {
	return "gateway"
}

// Complete posts the conversation and returns output.content.
func (c *GatewayClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	model := req.Model
	if model == "" {
		model = c.model
	}

	body, err := json.Marshal(gatewayRequest{
		Messages: req.Messages,
		Model:    model,
		Meta:     req.Meta,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var out gatewayResponse
	decodeErr := json.Unmarshal(raw, &out)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := out.Error
		if msg == "" {
			msg = out.Message
		}
		return nil, &StatusError{Code: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil || out.Output == nil || out.Output.Content == nil {
		return nil, ErrMissingContent
	}

	return &CompletionResponse{
		Content:   *out.Output.Content,
		Model:     model,
		LatencyMs: time.Since(start).Milliseconds(),
	}, nil
}
