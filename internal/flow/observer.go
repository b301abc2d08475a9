package flow

import (
	"context"
	"time"

	"github.com/xiaot623/fingenie/internal/domain"
	"github.com/xiaot623/fingenie/internal/policy"
)

// Observer receives progress notifications from the orchestrator. Calls are
// made synchronously from the flow goroutine.
type Observer interface {
	Status(ctx context.Context, step domain.Step, text string)
	StepStarted(ctx context.Context, step domain.Step)
	StepFinished(ctx context.Context, step domain.Step, artifact string, elapsed time.Duration, err error)
	Message(ctx context.Context, step domain.Step, msg domain.Message)
	SessionFinished(ctx context.Context, step domain.Step, state domain.SessionState)
	PolicyDecided(ctx context.Context, res policy.Result)
}

// BaseObserver implements Observer with no-ops. Embed it to override a
// subset of the callbacks.
type BaseObserver struct{}

func (BaseObserver) Status(context.Context, domain.Step, string) {}

func (BaseObserver) StepStarted(context.Context, domain.Step) {}

func (BaseObserver) StepFinished(context.Context, domain.Step, string, time.Duration, error) {}

func (BaseObserver) Message(context.Context, domain.Step, domain.Message) {}

func (BaseObserver) SessionFinished(context.Context, domain.Step, domain.SessionState) {}

func (BaseObserver) PolicyDecided(context.Context, policy.Result) {}

// Observers fans every notification out to each member in order.
type Observers []Observer

func (os Observers) Status(ctx context.Context, step domain.Step, text string) {
	for _, o := range os {
		o.Status(ctx, step, text)
	}
}

func (os Observers) StepStarted(ctx context.Context, step domain.Step) {
	for _, o := range os {
		o.StepStarted(ctx, step)
	}
}

func (os Observers) StepFinished(ctx context.Context, step domain.Step, artifact string, elapsed time.Duration, err error) {
	for _, o := range os {
		o.StepFinished(ctx, step, artifact, elapsed, err)
	}
}

func (os Observers) Message(ctx context.Context, step domain.Step, msg domain.Message) {
	for _, o := range os {
		o.Message(ctx, step, msg)
	}
}

func (os Observers) SessionFinished(ctx context.Context, step domain.Step, state domain.SessionState) {
	for _, o := range os {
		o.SessionFinished(ctx, step, state)
	}
}

func (os Observers) PolicyDecided(ctx context.Context, res policy.Result) {
	for _, o := range os {
		o.PolicyDecided(ctx, res)
	}
}

// ApprovalRecorder persists approval requests and decisions.
type ApprovalRecorder interface {
	RequestApproval(ctx context.Context, runID, recommendation string) (approvalID string, err error)
	// DecideApproval returns domain.ErrApprovalExpired when the approval
	// is no longer pending.
	DecideApproval(ctx context.Context, approvalID string, status domain.ApprovalStatus, decidedBy, reason string) error
}
