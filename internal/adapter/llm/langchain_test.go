package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type fakeModel struct {
	messages []llms.MessageContent
	opts     llms.CallOptions
}

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	for _, opt := range options {
		opt(&f.opts)
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "from langchain", StopReason: "end_turn"}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func TestLangChainClientMapsRolesAndOptions(t *testing.T) {
	fake := &fakeModel{}
	client := NewLangChainClient(fake, "claude")

	resp, err := client.CreateChatCompletion(context.Background(), &ChatCompletionRequest{
		Temperature: Float(0.9),
		Messages: []ChatMessage{
			{Role: RoleSystem, Content: "sys"},
			{Role: RoleAssistant, Content: "bot"},
			{Role: RoleUser, Content: "human"},
		},
	})
	require.NoError(t, err)

	content, err := Content(resp)
	require.NoError(t, err)
	assert.Equal(t, "from langchain", content)
	assert.Equal(t, "claude", resp.Model)

	require.Len(t, fake.messages, 3)
	assert.Equal(t, llms.ChatMessageTypeSystem, fake.messages[0].Role)
	assert.Equal(t, llms.ChatMessageTypeAI, fake.messages[1].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, fake.messages[2].Role)
	assert.InDelta(t, 0.9, fake.opts.Temperature, 1e-9)
}
