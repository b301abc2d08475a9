// Package flow runs the advisory pipeline: a fixed sequence of two-party
// conversations whose artifacts are threaded through a FlowContext.
package flow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xiaot623/fingenie/internal/agent"
	"github.com/xiaot623/fingenie/internal/conversation"
	"github.com/xiaot623/fingenie/internal/domain"
	"github.com/xiaot623/fingenie/internal/logger"
	"github.com/xiaot623/fingenie/internal/policy"
)

// Retriever finds product documents for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int, contains string) (domain.RetrievalResult, error)
}

// MacroAnalyst produces the macro-economic context.
type MacroAnalyst interface {
	Analyze(ctx context.Context, query string) (string, error)
}

// PolicyEvaluator decides whether a recommendation needs sign-off.
type PolicyEvaluator interface {
	Evaluate(ctx context.Context, in policy.Input) (policy.Result, error)
}

// Config holds per-deployment flow settings.
type Config struct {
	TopK        int
	Contains    string
	MaxTokens   int
	MacroQuery  string
	AutoApprove bool
}

// Orchestrator walks the step table for one run at a time. It keeps no
// per-run state, so a single value can serve concurrent runs.
type Orchestrator struct {
	roster    *Roster
	retriever Retriever
	macro     MacroAnalyst
	policy    PolicyEvaluator
	approvals ApprovalRecorder
	observer  Observer
	table     Table
	cfg       Config
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithPolicy(p PolicyEvaluator) Option {
	return func(o *Orchestrator) { o.policy = p }
}

func WithApprovals(r ApprovalRecorder) Option {
	return func(o *Orchestrator) { o.approvals = r }
}

func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) { o.observer = obs }
}

// WithTable replaces the step table.
func WithTable(t Table) Option {
	return func(o *Orchestrator) { o.table = t }
}

// New creates an orchestrator using DefaultTable.
func New(roster *Roster, retriever Retriever, macro MacroAnalyst, cfg Config, opts ...Option) *Orchestrator {
	if cfg.TopK <= 0 {
		cfg.TopK = 10
	}
	o := &Orchestrator{
		roster:    roster,
		retriever: retriever,
		macro:     macro,
		observer:  BaseObserver{},
		table:     DefaultTable(),
		cfg:       cfg,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes every step starting at intake. On failure the returned
// FlowContext holds the artifacts of the completed steps and its Err field
// names the failing step; the same *StepError is returned.
// The context logger is expected to carry the run id already.
func (o *Orchestrator) Run(ctx context.Context, runID string) (*domain.FlowContext, error) {
	fc := domain.NewFlowContext(runID)
	log := logger.FromContext(ctx)

	for step := domain.StepIntake; step != 0; step = o.table.Next(step) {
		tr, ok := o.table[step]
		if !ok {
			return o.fail(ctx, fc, step, fmt.Errorf("no transition for step %s", step))
		}
		if err := ctx.Err(); err != nil {
			return o.fail(ctx, fc, step, fmt.Errorf("%w: %w", domain.ErrCancelled, err))
		}

		stepLog := log.With("step", step.String())
		stepCtx := logger.ContextWithLogger(ctx, stepLog)
		o.observer.StepStarted(stepCtx, step)
		if tr.Status != "" {
			o.observer.Status(stepCtx, step, tr.Status)
		}

		start := time.Now()
		artifact, err := o.runStep(stepCtx, step, tr, fc)
		o.observer.StepFinished(stepCtx, step, artifact, time.Since(start), err)
		if err != nil {
			stepLog.Error("step failed", "error", err)
			return o.fail(ctx, fc, step, err)
		}
		if err := fc.Set(step, artifact); err != nil {
			return o.fail(ctx, fc, step, err)
		}
		stepLog.Info("step done", "elapsed", time.Since(start))
	}
	return fc, nil
}

func (o *Orchestrator) runStep(ctx context.Context, step domain.Step, tr Transition, fc *domain.FlowContext) (string, error) {
	if tr.Runner != nil {
		return tr.Runner(ctx, o, fc)
	}
	opener, err := tr.Opener(ctx, o, fc)
	if err != nil {
		return "", err
	}
	a, b := tr.Participants(o.roster)
	return o.converse(ctx, step, tr, a, b, opener)
}

func (o *Orchestrator) converse(ctx context.Context, step domain.Step, tr Transition, a, b *agent.Agent, opener string) (string, error) {
	opts := []conversation.Option{
		conversation.WithMaxRounds(tr.MaxRounds),
		conversation.WithObserver(func(msg domain.Message) {
			o.observer.Message(ctx, step, msg)
		}),
	}
	if tr.Summary != nil {
		opts = append(opts, conversation.WithSummary(tr.Summary(o)))
	}
	res, err := conversation.New(a, b, opts...).Run(ctx, opener)
	if res != nil {
		o.observer.SessionFinished(ctx, step, res.State)
	}
	if err != nil {
		return "", err
	}
	return res.Summary, nil
}

func (o *Orchestrator) fail(ctx context.Context, fc *domain.FlowContext, step domain.Step, err error) (*domain.FlowContext, error) {
	if ctx.Err() != nil && !errors.Is(err, domain.ErrCancelled) {
		err = fmt.Errorf("%w: %w", domain.ErrCancelled, err)
	}
	fc.Fail(step, err)
	return fc, fc.Err
}
