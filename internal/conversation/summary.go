package conversation

import (
	"context"
	"strings"

	"github.com/xiaot623/fingenie/internal/adapter/llm"
	"github.com/xiaot623/fingenie/internal/domain"
	"github.com/xiaot623/fingenie/internal/logger"
)

// Summarizer turns a finished transcript into the artifact handed to the
// next step.
type Summarizer interface {
	Summarize(ctx context.Context, transcript []domain.Message) (string, error)
}

// LastMessage uses the final message verbatim.
type LastMessage struct{}

// Summarize implements Summarizer.
func (LastMessage) Summarize(_ context.Context, transcript []domain.Message) (string, error) {
	return lastContent(transcript), nil
}

// Reflection asks a model to summarise the whole transcript. An empty
// model answer falls back to the last message.
type Reflection struct {
	Client      llm.LLMClient
	Model       string
	Prompt      string
	Temperature float64
}

// Summarize implements Summarizer.
func (r Reflection) Summarize(ctx context.Context, transcript []domain.Message) (string, error) {
	if len(transcript) == 0 {
		return "", nil
	}
	msgs := make([]llm.ChatMessage, 0, len(transcript)+2)
	msgs = append(msgs, llm.ChatMessage{Role: llm.RoleSystem, Content: r.Prompt})
	for _, m := range transcript {
		msgs = append(msgs, llm.ChatMessage{Role: llm.RoleUser, Name: sanitizeName(m.Role), Content: m.Content})
	}
	msgs = append(msgs, llm.ChatMessage{Role: llm.RoleUser, Content: r.Prompt})

	resp, err := r.Client.CreateChatCompletion(ctx, &llm.ChatCompletionRequest{
		Model:       r.Model,
		Temperature: llm.Float(r.Temperature),
		Messages:    msgs,
	})
	if err != nil {
		return "", domain.NewExternalError(domain.KindModel, "summarize", err)
	}
	content, err := llm.Content(resp)
	if err != nil || content == "" {
		logger.FromContext(ctx).Warn("summary was empty, using last message")
		return lastContent(transcript), nil
	}
	return content, nil
}

func lastContent(transcript []domain.Message) string {
	if len(transcript) == 0 {
		return ""
	}
	return transcript[len(transcript)-1].Content
}

// sanitizeName keeps chat message names within the [a-zA-Z0-9_-] set
// accepted by OpenAI-compatible APIs.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
