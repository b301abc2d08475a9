package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/xiaot623/fingenie/internal/agent"
	"github.com/xiaot623/fingenie/internal/domain"
	"github.com/xiaot623/fingenie/internal/flow"
	"github.com/xiaot623/fingenie/internal/logger"
)

type runStartedPayload struct {
	Steps []string `json:"steps"`
}

type runFailedPayload struct {
	Step    string `json:"step"`
	Message string `json:"message"`
}

// Start creates a run, executes the advisory flow with human as the
// customer channel and finalises the run status. observer, if not nil,
// receives every notification after the run log has recorded it.
//
// The returned FlowContext is never nil once the run row exists.
func (s *RunService) Start(ctx context.Context, observer flow.Observer, human agent.HumanChannel) (*domain.FlowContext, error) {
	runID := "run_" + uuid.New().String()[:8]
	run := &domain.Run{
		RunID:     runID,
		Status:    domain.RunStatusCreated,
		StartedAt: time.Now(),
	}
	if err := s.store.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	log := logger.FromContext(ctx).With("run_id", runID)
	ctx = logger.ContextWithLogger(ctx, log)

	steps := make([]string, 0, len(domain.AllSteps))
	for _, st := range domain.AllSteps {
		steps = append(steps, st.String())
	}
	s.recordEvent(ctx, runID, domain.EventTypeRunStarted, runStartedPayload{Steps: steps})
	if err := s.store.UpdateRunStatus(ctx, runID, domain.RunStatusRunning); err != nil {
		log.Warn("failed to update run status", "error", err)
	}

	observers := flow.Observers{&runRecorder{s: s, runID: runID}}
	if observer != nil {
		observers = append(observers, observer)
	}
	approver := s.deps.Approver
	if approver == nil {
		approver = human
	}
	roster := &flow.Roster{
		Client:      s.deps.Client,
		Model:       s.deps.Model,
		Customer:    human,
		Approver:    approver,
		Temperature: s.deps.Temperature,
	}
	opts := []flow.Option{flow.WithObserver(observers), flow.WithApprovals(s)}
	if s.deps.Policy != nil {
		opts = append(opts, flow.WithPolicy(s.deps.Policy))
	}
	o := flow.New(roster, s.deps.Retriever, s.deps.Macro, s.deps.Flow, opts...)

	fc, err := o.Run(ctx, runID)
	s.finish(context.WithoutCancel(ctx), fc, err)
	return fc, err
}

func (s *RunService) finish(ctx context.Context, fc *domain.FlowContext, runErr error) {
	log := logger.FromContext(ctx)
	status := domain.RunStatusDone
	eventType := domain.EventTypeRunDone
	var errData []byte
	var payload interface{} = fc.Snapshot()

	if runErr != nil {
		status = domain.RunStatusFailed
		eventType = domain.EventTypeRunFailed
		if errors.Is(runErr, domain.ErrCancelled) {
			status = domain.RunStatusCancelled
			eventType = domain.EventTypeRunCancelled
		}
		failed := runFailedPayload{Message: runErr.Error()}
		if fc.Err != nil {
			failed.Step = fc.Err.Step.String()
		}
		errData, _ = json.Marshal(failed)
		payload = failed
	}

	s.recordEvent(ctx, fc.RunID, eventType, payload)
	if err := s.store.UpdateRunCompleted(ctx, fc.RunID, status, errData); err != nil {
		log.Warn("failed to update run status", "error", err)
	}
	s.metrics.RunFinished(ctx, string(status))
	log.Info("run finished", "status", status)
}

// GetRun returns the run with its current status.
func (s *RunService) GetRun(ctx context.Context, runID string) (*domain.Run, error) {
	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

func (s *RunService) GetRunEvents(ctx context.Context, runID string, afterTs int64, types []string, limit int) ([]domain.Event, error) {
	events, err := s.store.GetEvents(ctx, runID, afterTs, types, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get run events: %w", err)
	}
	return events, nil
}

func (s *RunService) GetRunMessages(ctx context.Context, runID, step string) ([]domain.StoredMessage, error) {
	msgs, err := s.store.GetMessages(ctx, runID, step)
	if err != nil {
		return nil, fmt.Errorf("failed to get run messages: %w", err)
	}
	return msgs, nil
}
