package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client talks to any OpenAI-compatible chat completions endpoint
// (OpenAI, LiteLLM, vLLM, ...).
type Client struct {
	http *resty.Client
}

// NewClient creates a new OpenAI-compatible client. baseURL should include
// the API version prefix, e.g. https://api.openai.com/v1.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	rc := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	if apiKey != "" {
		rc.SetAuthToken(apiKey)
	}
	return &Client{http: rc}
}

// CreateChatCompletion sends a chat completion request (non-streaming).
func (c *Client) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	req.Stream = false

	var result ChatCompletionResponse
	var errResp ErrorResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&result).
		SetError(&errResp).
		Post("/chat/completions")
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	if resp.IsError() {
		if errResp.Error != nil {
			return nil, &StatusError{StatusCode: resp.StatusCode(), Message: errResp.Error.Message, Type: errResp.Error.Type}
		}
		return nil, &StatusError{StatusCode: resp.StatusCode(), Message: resp.String()}
	}

	return &result, nil
}
