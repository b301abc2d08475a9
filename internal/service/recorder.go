package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/xiaot623/fingenie/internal/domain"
	"github.com/xiaot623/fingenie/internal/logger"
	"github.com/xiaot623/fingenie/internal/policy"
)

// runRecorder writes flow notifications to the run log. Store failures are
// logged and never reach the flow.
type runRecorder struct {
	s     *RunService
	runID string
}

type stepPayload struct {
	Step      string `json:"step"`
	Text      string `json:"text,omitempty"`
	ElapsedMs int64  `json:"elapsed_ms,omitempty"`
	Error     string `json:"error,omitempty"`
}

type messagePayload struct {
	MessageID string `json:"message_id"`
	Step      string `json:"step"`
	Role      string `json:"role"`
	Ordinal   int    `json:"ordinal"`
}

type policyPayload struct {
	Decision domain.PolicyDecision `json:"decision"`
	Reason   string                `json:"reason,omitempty"`
}

// recordEvent appends an event to the run log. The write outlives ctx
// cancellation so a cancelled run still gets its closing events; failures
// are logged and dropped.
func (s *RunService) recordEvent(ctx context.Context, runID string, t domain.EventType, payload any) {
	log := logger.FromContext(ctx)
	data, err := json.Marshal(payload)
	if err != nil {
		log.Warn("failed to marshal event payload", "type", t, "error", err)
		return
	}
	event := &domain.Event{
		EventID: "evt_" + uuid.New().String()[:8],
		RunID:   runID,
		Ts:      time.Now().UnixMilli(),
		Type:    t,
		Payload: data,
	}
	if err := s.store.CreateEvent(context.WithoutCancel(ctx), event); err != nil {
		log.Warn("failed to record event", "type", t, "error", err)
	}
}

func (r *runRecorder) event(ctx context.Context, t domain.EventType, payload interface{}) {
	r.s.recordEvent(ctx, r.runID, t, payload)
}

func (r *runRecorder) Status(ctx context.Context, step domain.Step, text string) {
	r.event(ctx, domain.EventTypeStatus, stepPayload{Step: step.String(), Text: text})
}

func (r *runRecorder) StepStarted(ctx context.Context, step domain.Step) {
	r.event(ctx, domain.EventTypeStepStarted, stepPayload{Step: step.String()})
}

func (r *runRecorder) StepFinished(ctx context.Context, step domain.Step, _ string, elapsed time.Duration, err error) {
	r.s.metrics.StepFinished(ctx, step.String(), elapsed, err)
	p := stepPayload{Step: step.String(), ElapsedMs: elapsed.Milliseconds()}
	if err != nil {
		p.Error = err.Error()
		r.event(ctx, domain.EventTypeStepFailed, p)
		return
	}
	r.event(ctx, domain.EventTypeStepDone, p)
}

func (r *runRecorder) Message(ctx context.Context, step domain.Step, msg domain.Message) {
	stored := &domain.StoredMessage{
		MessageID: "msg_" + uuid.New().String()[:8],
		RunID:     r.runID,
		Step:      step.String(),
		Role:      msg.Role,
		Content:   msg.Content,
		Ordinal:   msg.Ordinal,
		CreatedAt: time.Now(),
	}
	if err := r.s.store.CreateMessage(context.WithoutCancel(ctx), stored); err != nil {
		logger.FromContext(ctx).Warn("failed to save message", "error", err)
	}
	r.event(ctx, domain.EventTypeMessage, messagePayload{
		MessageID: stored.MessageID,
		Step:      stored.Step,
		Role:      stored.Role,
		Ordinal:   stored.Ordinal,
	})
}

func (r *runRecorder) SessionFinished(ctx context.Context, step domain.Step, state domain.SessionState) {
	r.s.metrics.SessionFinished(ctx, step.String(), state.String())
}

func (r *runRecorder) PolicyDecided(ctx context.Context, res policy.Result) {
	r.s.metrics.PolicyDecided(ctx, string(res.Decision))
	r.event(ctx, domain.EventTypePolicyDecision, policyPayload{Decision: res.Decision, Reason: res.Reason})
}
