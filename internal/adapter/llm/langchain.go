package llm

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/tmc/langchaingo/llms"
)

// LangChainClient adapts a langchaingo model to LLMClient so provider SDKs
// (anthropic, ollama, openai) can back the same agents.
type LangChainClient struct {
	model llms.Model
	name  string
}

// NewLangChainClient wraps model. name is reported back in responses.
func NewLangChainClient(model llms.Model, name string) *LangChainClient {
	return &LangChainClient{model: model, name: name}
}

// CreateChatCompletion implements LLMClient.
func (c *LangChainClient) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	resp, err := c.model.GenerateContent(ctx, convertMessages(req.Messages), buildCallOptions(req)...)
	if err != nil {
		return nil, fmt.Errorf("langchain GenerateContent failed: %w", providerError(err))
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, ErrEmptyCompletion
	}
	model := req.Model
	if model == "" {
		model = c.name
	}
	choice := resp.Choices[0]
	return &ChatCompletionResponse{
		ID:      fmt.Sprintf("lc-%d", time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []Choice{{
			Index:        0,
			Message:      &ChatMessage{Role: RoleAssistant, Content: choice.Content},
			FinishReason: choice.StopReason,
		}},
	}, nil
}

// openai and anthropic report "API returned unexpected status code: 401: msg";
// ollama reports its HTTP status line, e.g. "404 Not Found: msg".
var providerStatus = regexp.MustCompile(`(?:status code: |^)([1-5][0-9]{2})\b`)

// providerError lifts the HTTP status out of a provider SDK error so the
// retry policy treats it like a StatusError from Client.
func providerError(err error) error {
	m := providerStatus.FindStringSubmatch(err.Error())
	if m == nil {
		return err
	}
	code, convErr := strconv.Atoi(m[1])
	if convErr != nil {
		return err
	}
	return &StatusError{StatusCode: code, Message: err.Error()}
}

func convertMessages(msgs []ChatMessage) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, llms.TextParts(mapRole(m.Role), m.Content))
	}
	return out
}

func mapRole(role string) llms.ChatMessageType {
	switch role {
	case RoleSystem:
		return llms.ChatMessageTypeSystem
	case RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}

func buildCallOptions(req *ChatCompletionRequest) []llms.CallOption {
	var opts []llms.CallOption
	if req.Model != "" {
		opts = append(opts, llms.WithModel(req.Model))
	}
	if req.Temperature != nil {
		opts = append(opts, llms.WithTemperature(*req.Temperature))
	}
	if req.MaxTokens != nil {
		opts = append(opts, llms.WithMaxTokens(*req.MaxTokens))
	}
	if req.TopP != nil {
		opts = append(opts, llms.WithTopP(*req.TopP))
	}
	if len(req.Stop) > 0 {
		opts = append(opts, llms.WithStopWords(req.Stop))
	}
	return opts
}
