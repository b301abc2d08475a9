package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// MockClient is a scripted implementation of LLMClient used in tests and
// in FINGENIE_MODE=MOCK.
//
// Scripted replies are consumed in order. Once the script is exhausted the
// client falls back to canned replies chosen from the system prompt.
type MockClient struct {
	mu       sync.Mutex
	script   []string
	failures []mockFailure
	calls    []ChatCompletionRequest
}

type mockFailure struct {
	match string
	err   error
}

// NewMockClient creates a new mock LLM client.
func NewMockClient(script ...string) *MockClient {
	return &MockClient{script: script}
}

// FailWhen makes every request whose system prompt contains match fail with err.
func (m *MockClient) FailWhen(match string, err error) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, mockFailure{match: match, err: err})
	return m
}

// Calls returns copies of the requests received so far.
func (m *MockClient) Calls() []ChatCompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ChatCompletionRequest, len(m.calls))
	copy(out, m.calls)
	return out
}

// CreateChatCompletion returns the next scripted reply.
func (m *MockClient) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.calls = append(m.calls, *req)
	system := systemPrompt(req)
	for _, f := range m.failures {
		if strings.Contains(system, f.match) {
			m.mu.Unlock()
			return nil, f.err
		}
	}
	var content string
	if len(m.script) > 0 {
		content = m.script[0]
		m.script = m.script[1:]
	} else {
		content = cannedReply(req, system)
	}
	m.mu.Unlock()

	return &ChatCompletionResponse{
		ID:      fmt.Sprintf("mock-chatcmpl-%d", time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []Choice{{
			Index:        0,
			Message:      &ChatMessage{Role: RoleAssistant, Content: content},
			FinishReason: "stop",
		}},
		Usage: &Usage{
			PromptTokens:     estimateTokens(req),
			CompletionTokens: len(content) / 4,
			TotalTokens:      estimateTokens(req) + len(content)/4,
		},
	}, nil
}

func systemPrompt(req *ChatCompletionRequest) string {
	for _, msg := range req.Messages {
		if msg.Role == RoleSystem {
			return msg.Content
		}
	}
	return ""
}

// cannedReply keeps MOCK mode usable end to end without a model.
func cannedReply(req *ChatCompletionRequest, system string) string {
	lower := strings.ToLower(system)
	switch {
	case strings.Contains(lower, "customer chatbot"):
		userTurns := 0
		for _, msg := range req.Messages {
			if msg.Role == RoleUser {
				userTurns++
			}
		}
		if userTurns >= 3 {
			return "Thank you for your time. I will now pass this information to my relationship manager to suggest you some products."
		}
		questions := []string{
			"Could you tell me about your annual income?",
			"How much do you currently have in savings?",
			"What are your main financial goals for the next few years?",
		}
		return questions[userTurns%len(questions)]
	case strings.Contains(lower, "summar"):
		return "Mock summary: " + lastUserContent(req)
	case strings.Contains(lower, "you are a financial advisor"):
		return "Mock advice: allocate 60% to the ISA and keep 40% in easy access savings."
	case strings.Contains(lower, "relationship manager"):
		return "Mock recommendation: an easy access saver and a stocks and shares ISA suit the stated goals."
	default:
		return "Mock response to: " + lastUserContent(req)
	}
}

func lastUserContent(req *ChatCompletionRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role != RoleSystem {
			content := req.Messages[i].Content
			if len(content) > 200 {
				content = content[:200]
			}
			return content
		}
	}
	return ""
}

func estimateTokens(req *ChatCompletionRequest) int {
	total := 0
	for _, msg := range req.Messages {
		total += len(msg.Content) / 4
	}
	return total
}
