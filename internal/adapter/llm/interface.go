// Package llm provides an abstraction for LLM API clients.
package llm

import (
	"context"
	"errors"
	"strings"
)

// LLMClient defines the interface for LLM API operations.
type LLMClient interface {
	// CreateChatCompletion sends a chat completion request (non-streaming).
	CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error)
}

// ErrEmptyCompletion is returned when a response carries no choices.
var ErrEmptyCompletion = errors.New("completion has no choices")

// Ensure implementations satisfy LLMClient.
var (
	_ LLMClient = (*Client)(nil)
	_ LLMClient = (*MockClient)(nil)
	_ LLMClient = (*LangChainClient)(nil)
	_ LLMClient = (*RetryingClient)(nil)
)

// Content returns the text of the first choice.
func Content(resp *ChatCompletionResponse) (string, error) {
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0].Message == nil {
		return "", ErrEmptyCompletion
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Float returns a pointer to v, for optional request fields.
func Float(v float64) *float64 {
	return &v
}
