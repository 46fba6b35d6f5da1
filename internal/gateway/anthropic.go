// Package gateway implements the Anthropic Messages API client used as the
// conversation loop's model backend.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/toolbridge/toolbridge/internal/apperr"
	"github.com/toolbridge/toolbridge/internal/schema"
)

const (
	defaultBaseURL   = "https://api.anthropic.com"
	anthropicVersion = "2023-06-01"
)

// Anthropic is a stateless Messages API client. One Complete call is one
// HTTP request; there is no retry and no streaming.
type Anthropic struct {
	apiKey    string
	model     string
	maxTokens int
	baseURL   string
	client    *http.Client
}

// Option configures an Anthropic client.
type Option func(*Anthropic)

// WithBaseURL overrides the API endpoint, mainly for tests.
func WithBaseURL(url string) Option {
	return func(a *Anthropic) { a.baseURL = url }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Anthropic) { a.client = c }
}

func New(apiKey, model string, maxTokens int, opts ...Option) *Anthropic {
	a := &Anthropic{
		apiKey:    apiKey,
		model:     model,
		maxTokens: maxTokens,
		baseURL:   defaultBaseURL,
		client:    &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type messagesRequest struct {
	Model     string            `json:"model"`
	MaxTokens int               `json:"max_tokens"`
	Messages  []schema.Message  `json:"messages"`
	Tools     []toolDeclaration `json:"tools,omitempty"`
}

type toolDeclaration struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

type messagesResponse struct {
	Content    []schema.ContentBlock `json:"content"`
	StopReason string                `json:"stop_reason"`
	Error      *apiError             `json:"error"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Complete sends the transcript and tool catalog to the Messages API and
// returns the model's content blocks.
func (a *Anthropic) Complete(ctx context.Context, transcript []schema.Message, catalog []schema.ToolDescriptor) (schema.ModelResponse, error) {
	reqBody := messagesRequest{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		Messages:  transcript,
	}
	for _, t := range catalog {
		reqBody.Tools = append(reqBody.Tools, toolDeclaration{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
		})
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return schema.ModelResponse{}, apperr.E(apperr.KindSerialization, "gateway.complete",
			fmt.Errorf("encode request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		a.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return schema.ModelResponse{}, apperr.E(apperr.KindGateway, "gateway.complete", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := a.client.Do(req)
	if err != nil {
		return schema.ModelResponse{}, apperr.E(apperr.KindGateway, "gateway.complete",
			fmt.Errorf("call model API: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return schema.ModelResponse{}, apperr.E(apperr.KindGateway, "gateway.complete",
			fmt.Errorf("read model API response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return schema.ModelResponse{}, apperr.Errorf(apperr.KindGateway, "gateway.complete",
			"model API returned %d: %s", resp.StatusCode, summarize(body))
	}

	var decoded messagesResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return schema.ModelResponse{}, apperr.E(apperr.KindGateway, "gateway.complete",
			fmt.Errorf("decode model API response: %w", err))
	}
	if decoded.Error != nil {
		return schema.ModelResponse{}, apperr.Errorf(apperr.KindGateway, "gateway.complete",
			"model API error %s: %s", decoded.Error.Type, decoded.Error.Message)
	}
	if len(decoded.Content) == 0 {
		return schema.ModelResponse{}, apperr.Errorf(apperr.KindGateway, "gateway.complete",
			"model API returned no content blocks")
	}

	return schema.ModelResponse{
		Blocks:     decoded.Content,
		StopReason: decoded.StopReason,
	}, nil
}

// summarize trims an error body so it fits in a log line or error message.
func summarize(body []byte) string {
	const max = 512
	s := string(bytes.TrimSpace(body))
	if len(s) > max {
		return s[:max] + "..."
	}
	if s == "" {
		return "(empty body)"
	}
	return s
}
