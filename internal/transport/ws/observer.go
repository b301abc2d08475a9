package ws

import (
	"context"

	"github.com/xiaot623/fingenie/internal/domain"
	"github.com/xiaot623/fingenie/internal/flow"
	"github.com/xiaot623/fingenie/internal/logger"
	"github.com/xiaot623/fingenie/internal/protocol"
)

// StatusObserver forwards step status lines to the client. Intermediate
// agent messages stay in the run log, except a closing intake message from
// the chatbot that no input prompt carried to the customer.
type StatusObserver struct {
	flow.BaseObserver
	Bridge *Bridge

	unseen string
}

// NewStatusObserver returns an observer writing to b.
func NewStatusObserver(b *Bridge) *StatusObserver {
	return &StatusObserver{Bridge: b}
}

func (o *StatusObserver) Status(ctx context.Context, _ domain.Step, text string) {
	o.send(ctx, protocol.Status(text))
}

func (o *StatusObserver) Message(_ context.Context, step domain.Step, msg domain.Message) {
	if step != domain.StepIntake {
		return
	}
	if msg.Role == flow.NameCustomerBot {
		o.unseen = msg.Content
		return
	}
	o.unseen = ""
}

func (o *StatusObserver) SessionFinished(ctx context.Context, step domain.Step, state domain.SessionState) {
	if step != domain.StepIntake || o.unseen == "" || state == domain.SessionTerminatedByCancel {
		return
	}
	o.send(ctx, protocol.Bot(flow.NameCustomerBot, o.unseen))
	o.unseen = ""
}

func (o *StatusObserver) send(ctx context.Context, f protocol.Frame) {
	if err := o.Bridge.Send(ctx, f); err != nil {
		logger.FromContext(ctx).Debug("frame not delivered", "type", f.Type, "error", err)
	}
}
