// Package conversation runs bounded two-party exchanges between agents.
package conversation

import (
	"context"
	"errors"
	"fmt"

	"github.com/xiaot623/fingenie/internal/agent"
	"github.com/xiaot623/fingenie/internal/domain"
	"github.com/xiaot623/fingenie/internal/logger"
)

// DefaultMaxRounds bounds sessions created without WithMaxRounds.
const DefaultMaxRounds = 10

// Observer is notified of every message appended to a transcript, in order.
type Observer func(msg domain.Message)

// Option configures a Session.
type Option func(*Session)

// WithMaxRounds sets the round limit R; the transcript never exceeds 2R messages.
func WithMaxRounds(r int) Option {
	return func(s *Session) {
		if r > 0 {
			s.maxRounds = r
		}
	}
}

// WithSummary sets how the session's artifact is produced once it ends.
func WithSummary(sum Summarizer) Option {
	return func(s *Session) {
		if sum != nil {
			s.summary = sum
		}
	}
}

// WithObserver registers fn for appended messages.
func WithObserver(fn Observer) Option {
	return func(s *Session) {
		if fn != nil {
			s.observers = append(s.observers, fn)
		}
	}
}

// Result is the outcome of a finished session.
type Result struct {
	Transcript []domain.Message
	State      domain.SessionState
	Summary    string
	Rounds     int
}

// Session is a two-party exchange. A opens, then B and A alternate.
// A Session is single use and owns its transcript.
type Session struct {
	a, b       *agent.Agent
	maxRounds  int
	summary    Summarizer
	observers  []Observer
	state      domain.SessionState
	transcript []domain.Message
}

// New creates an idle session between a and b.
func New(a, b *agent.Agent, opts ...Option) *Session {
	s := &Session{
		a:         a,
		b:         b,
		maxRounds: DefaultMaxRounds,
		summary:   LastMessage{},
		state:     domain.SessionIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current lifecycle state.
func (s *Session) State() domain.SessionState {
	return s.state
}

// Transcript returns a copy of the messages appended so far.
func (s *Session) Transcript() []domain.Message {
	out := make([]domain.Message, len(s.transcript))
	copy(out, s.transcript)
	return out
}

// Rounds returns the number of started rounds. A round is one message from
// A followed by one from B.
func (s *Session) Rounds() int {
	return (len(s.transcript) + 1) / 2
}

// Run injects opener as A's first message and alternates replies until a
// termination predicate fires, the round limit is hit or ctx is cancelled.
//
// After every append the round limit is checked first, then the receiving
// agent's predicate against that message; a coinciding predicate therefore
// reports TerminatedByRoundLimit.
func (s *Session) Run(ctx context.Context, opener string) (*Result, error) {
	if s.state != domain.SessionIdle {
		return nil, fmt.Errorf("session already started (state %s)", s.state)
	}
	log := logger.FromContext(ctx).With("a", s.a.Name, "b", s.b.Name)
	s.state = domain.SessionActive

	speaker, receiver := s.a, s.b
	content := opener
	for {
		msg := s.append(speaker, content)
		if len(s.transcript) >= 2*s.maxRounds {
			s.state = domain.SessionTerminatedByRoundLimit
			break
		}
		if receiver.ShouldTerminate(msg) {
			s.state = domain.SessionTerminatedByPredicate
			break
		}

		speaker, receiver = receiver, speaker
		reply, err := speaker.Respond(ctx, s.Transcript())
		if err != nil {
			if errors.Is(err, domain.ErrCancelled) || ctx.Err() != nil {
				s.state = domain.SessionTerminatedByCancel
				log.Info("session cancelled", "messages", len(s.transcript))
				if !errors.Is(err, domain.ErrCancelled) {
					err = fmt.Errorf("%w: %w", domain.ErrCancelled, err)
				}
				return s.result(""), err
			}
			log.Error("agent reply failed", "agent", speaker.Name, "error", err)
			return s.result(""), err
		}
		content = reply
	}

	log.Debug("session terminated", "state", s.state.String(), "messages", len(s.transcript))
	summary, err := s.summary.Summarize(ctx, s.Transcript())
	if err != nil {
		return s.result(""), fmt.Errorf("failed to summarize session: %w", err)
	}
	return s.result(summary), nil
}

func (s *Session) append(from *agent.Agent, content string) domain.Message {
	msg := domain.Message{Role: from.Name, Content: content, Ordinal: len(s.transcript)}
	s.transcript = append(s.transcript, msg)
	for _, fn := range s.observers {
		fn(msg)
	}
	return msg
}

func (s *Session) result(summary string) *Result {
	return &Result{
		Transcript: s.Transcript(),
		State:      s.state,
		Summary:    summary,
		Rounds:     s.Rounds(),
	}
}
