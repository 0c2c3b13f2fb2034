package inference

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/beanlab/bean-curator/internal/adapter"
)

const (
	// StatusOverloaded is the non-standard status the Messages API uses when overloaded
	StatusOverloaded = 529

	defaultAPIVersion = "2023-06-01"
	defaultMaxTokens  = 1500
)

// CompletionRequest is a single-turn prompt
type CompletionRequest struct {
	System    string
	Prompt    string
	MaxTokens int
}

// Completer sends a prompt to a language model and returns the text of its reply
//
//go:generate mockgen -source=completer.go -destination=../mocks/completer.go -package=mocks -mock_names=Completer=MockCompleter
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// ClientConfig holds the endpoint settings of a Messages API client
type ClientConfig struct {
	Endpoint   string
	Model      string
	APIKey     string
	APIVersion string
	MaxTokens  int
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Type    string `json:"type"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// AnthropicCompleter implements Completer against the Anthropic Messages API
type AnthropicCompleter struct {
	httpClient adapter.HTTPClient
	json       adapter.JSON
	cfg        ClientConfig
}

// NewAnthropicCompleter creates a Messages API client
func NewAnthropicCompleter(httpClient adapter.HTTPClient, json adapter.JSON, cfg ClientConfig) Completer {
	if cfg.APIVersion == "" {
		cfg.APIVersion = defaultAPIVersion
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	return &AnthropicCompleter{httpClient: httpClient, json: json, cfg: cfg}
}

// Complete performs one Messages API call. Throttling (429/529) is returned wrapped in ErrRateLimited.
func (c *AnthropicCompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.cfg.MaxTokens
	}

	body, err := c.json.Marshal(messagesRequest{
		Model:     c.cfg.Model,
		MaxTokens: maxTokens,
		System:    req.System,
		Messages:  []message{{Role: "user", Content: req.Prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	headers := map[string]string{
		"x-api-key":         c.cfg.APIKey,
		"anthropic-version": c.cfg.APIVersion,
	}

	respBody, err := c.httpClient.PostJSON(ctx, c.cfg.Endpoint, headers, body)
	if err != nil {
		var statusErr *adapter.StatusError
		if errors.As(err, &statusErr) &&
			(statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode == StatusOverloaded) {
			return "", fmt.Errorf("%w: %s", ErrRateLimited, statusErr.Error())
		}
		return "", fmt.Errorf("model request failed: %w", err)
	}

	var resp messagesResponse
	if err := c.json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("%w: failed to decode envelope: %s", ErrParseFailure, err.Error())
	}

	if resp.Error != nil {
		if resp.Error.Type == "rate_limit_error" || resp.Error.Type == "overloaded_error" {
			return "", fmt.Errorf("%w: %s", ErrRateLimited, resp.Error.Message)
		}
		return "", fmt.Errorf("model error %s: %s", resp.Error.Type, resp.Error.Message)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return "", fmt.Errorf("%w: empty completion (stop reason %q)", ErrParseFailure, resp.StopReason)
	}

	return strings.TrimSpace(text.String()), nil
}
