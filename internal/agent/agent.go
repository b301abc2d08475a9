// Package agent defines conversational participants and their reply policies.
package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/xiaot623/fingenie/internal/adapter/llm"
	"github.com/xiaot623/fingenie/internal/domain"
)

// ReplyPolicy produces an agent's next message given the transcript so far.
type ReplyPolicy interface {
	Reply(ctx context.Context, self *Agent, transcript []domain.Message) (string, error)
}

// Agent is a named participant with a fixed role instruction.
type Agent struct {
	Name        string
	Instruction string
	Policy      ReplyPolicy
	Terminate   Predicate
}

// New creates an agent. A nil predicate never terminates.
func New(name, instruction string, policy ReplyPolicy, terminate Predicate) *Agent {
	if terminate == nil {
		terminate = Never
	}
	if policy == nil {
		policy = Relay{}
	}
	return &Agent{Name: name, Instruction: instruction, Policy: policy, Terminate: terminate}
}

// Respond returns the agent's reply to transcript.
func (a *Agent) Respond(ctx context.Context, transcript []domain.Message) (string, error) {
	return a.Policy.Reply(ctx, a, transcript)
}

// ShouldTerminate evaluates the termination predicate against msg.
func (a *Agent) ShouldTerminate(msg domain.Message) bool {
	return a.Terminate(msg)
}

// LLM replies through a language model, with the agent instruction as the
// system message and the transcript as history.
type LLM struct {
	Client      llm.LLMClient
	Model       string
	Temperature float64
}

// Reply implements ReplyPolicy.
func (p LLM) Reply(ctx context.Context, self *Agent, transcript []domain.Message) (string, error) {
	req := &llm.ChatCompletionRequest{
		Model:       p.Model,
		Temperature: llm.Float(p.Temperature),
		Messages:    BuildMessages(self.Name, self.Instruction, transcript),
	}
	resp, err := p.Client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", domain.NewExternalError(domain.KindModel, self.Name, err)
	}
	content, err := llm.Content(resp)
	if err != nil {
		return "", domain.NewExternalError(domain.KindModel, self.Name, err)
	}
	return content, nil
}

// BuildMessages maps a transcript to chat messages from the point of view of
// the named speaker: its own turns are assistant turns, the rest are user turns.
func BuildMessages(self, instruction string, transcript []domain.Message) []llm.ChatMessage {
	msgs := make([]llm.ChatMessage, 0, len(transcript)+1)
	if instruction != "" {
		msgs = append(msgs, llm.ChatMessage{Role: llm.RoleSystem, Content: instruction})
	}
	for _, m := range transcript {
		role := llm.RoleUser
		if m.Role == self {
			role = llm.RoleAssistant
		}
		msgs = append(msgs, llm.ChatMessage{Role: role, Content: m.Content})
	}
	return msgs
}

// HumanChannel supplies text typed by a person. Ask blocks until a reply
// arrives or ctx is done.
type HumanChannel interface {
	Ask(ctx context.Context, speaker, prompt string) (string, error)
}

// Human replies with input from a HumanChannel. The prompt shown is the most
// recent message addressed to the agent.
type Human struct {
	Channel HumanChannel
}

// Reply implements ReplyPolicy.
func (p Human) Reply(ctx context.Context, self *Agent, transcript []domain.Message) (string, error) {
	var prompt, speaker string
	if n := len(transcript); n > 0 {
		prompt = transcript[n-1].Content
		speaker = transcript[n-1].Role
	}
	reply, err := p.Channel.Ask(ctx, speaker, prompt)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, domain.ErrCancelled) {
			return "", fmt.Errorf("%w: %s waiting for input: %w", domain.ErrCancelled, self.Name, err)
		}
		return "", err
	}
	return reply, nil
}

// Relay never generates text. Relay agents only inject openers.
type Relay struct{}

// Reply implements ReplyPolicy.
func (Relay) Reply(_ context.Context, self *Agent, _ []domain.Message) (string, error) {
	return "", fmt.Errorf("%w: %s", domain.ErrNoReply, self.Name)
}
