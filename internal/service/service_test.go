package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/fingenie/internal/adapter/llm"
	"github.com/xiaot623/fingenie/internal/domain"
	"github.com/xiaot623/fingenie/internal/flow"
	"github.com/xiaot623/fingenie/internal/logger"
	"github.com/xiaot623/fingenie/internal/repository"
	"github.com/xiaot623/fingenie/tests/helpers"
)

type scriptedHuman struct {
	mu      sync.Mutex
	replies []string
}

func (s *scriptedHuman) Ask(ctx context.Context, _, _ string) (string, error) {
	s.mu.Lock()
	if len(s.replies) == 0 {
		s.mu.Unlock()
		<-ctx.Done()
		return "", ctx.Err()
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	s.mu.Unlock()
	return r, nil
}

type stubRetriever struct{}

func (stubRetriever) Retrieve(_ context.Context, query string, _ int, _ string) (domain.RetrievalResult, error) {
	return domain.RetrievalResult{Query: query, Hits: []domain.Hit{
		{ID: "1", Document: "Easy access saver.", Metadata: map[string]any{"url": "https://example.test/saver"}, Score: 0.7},
	}}, nil
}

type stubMacro struct{}

func (stubMacro) Analyze(context.Context, string) (string, error) { return "Rates are on hold.", nil }

type statusCollector struct {
	flow.BaseObserver
	mu       sync.Mutex
	statuses []string
}

func (c *statusCollector) Status(_ context.Context, _ domain.Step, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses = append(c.statuses, text)
}

func newTestService(t *testing.T, client *llm.MockClient, timeout time.Duration) *RunService {
	t.Helper()
	store := helpers.NewTestSQLiteStore(t)
	return New(store, nil, Dependencies{
		Client:    client,
		Model:     "mock",
		Retriever: stubRetriever{},
		Macro:     stubMacro{},
		Flow:      flow.Config{TopK: 3},
	}, timeout)
}

func eventTypes(events []domain.Event) []domain.EventType {
	out := make([]domain.EventType, 0, len(events))
	for _, e := range events {
		out = append(out, e.Type)
	}
	return out
}

type unwritableApprovals struct {
	repository.Store
}

func (unwritableApprovals) CreateApproval(context.Context, *domain.Approval) error {
	return errors.New("disk full")
}

func TestStartSurvivesApprovalWriteFailure(t *testing.T) {
	ctx := context.Background()
	store := unwritableApprovals{Store: helpers.NewTestSQLiteStore(t)}
	svc := New(store, nil, Dependencies{
		Client:    llm.NewMockClient(),
		Model:     "mock",
		Retriever: stubRetriever{},
		Macro:     stubMacro{},
		Flow:      flow.Config{TopK: 3},
	}, time.Minute)
	human := &scriptedHuman{replies: []string{"60k", "20k", "a house", "approve"}}

	fc, err := svc.Start(ctx, nil, human)
	require.NoError(t, err)
	assert.Equal(t, domain.AllSteps, fc.Steps())

	run, err := svc.GetRun(ctx, fc.RunID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusDone, run.Status)
}

type unwritableEvents struct {
	repository.Store
}

func (unwritableEvents) CreateEvent(context.Context, *domain.Event) error {
	return errors.New("disk full")
}

func TestStartSurvivesEventWriteFailure(t *testing.T) {
	ctx := context.Background()
	svc := New(unwritableEvents{Store: helpers.NewTestSQLiteStore(t)}, nil, Dependencies{
		Client:    llm.NewMockClient(),
		Model:     "mock",
		Retriever: stubRetriever{},
		Macro:     stubMacro{},
		Flow:      flow.Config{TopK: 3},
	}, time.Minute)
	human := &scriptedHuman{replies: []string{"60k", "20k", "a house", "approve"}}

	fc, err := svc.Start(ctx, nil, human)
	require.NoError(t, err)

	run, err := svc.GetRun(ctx, fc.RunID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusDone, run.Status)
	events, err := svc.GetRunEvents(ctx, fc.RunID, 0, nil, 0)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestStartTagsLogLinesWithRunIDOnce(t *testing.T) {
	var buf bytes.Buffer
	ctx := logger.ContextWithLogger(context.Background(), logger.NewLogger(&logger.Config{Level: logger.DebugLevel, Output: &buf}))
	svc := newTestService(t, llm.NewMockClient(), time.Minute)
	human := &scriptedHuman{replies: []string{"60k", "20k", "a house", "approve"}}

	_, err := svc.Start(ctx, nil, human)
	require.NoError(t, err)

	tagged := 0
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		n := strings.Count(line, "run_id=")
		if n > 1 {
			t.Fatalf("run_id repeated in log line: %s", line)
		}
		tagged += n
	}
	assert.NotZero(t, tagged)
}

func TestStartRecordsCompletedRun(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, llm.NewMockClient(), time.Minute)
	human := &scriptedHuman{replies: []string{"60k", "20k", "a house", "approve"}}
	collector := &statusCollector{}

	fc, err := svc.Start(ctx, collector, human)
	require.NoError(t, err)
	assert.Equal(t, domain.AllSteps, fc.Steps())
	assert.Len(t, collector.statuses, len(domain.AllSteps))

	run, err := svc.GetRun(ctx, fc.RunID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusDone, run.Status)
	assert.NotNil(t, run.EndedAt)

	events, err := svc.GetRunEvents(ctx, fc.RunID, 0, nil, 0)
	require.NoError(t, err)
	types := eventTypes(events)
	assert.Equal(t, domain.EventTypeRunStarted, types[0])
	assert.Equal(t, domain.EventTypeRunDone, types[len(types)-1])
	assert.Contains(t, types, domain.EventTypePolicyDecision)
	assert.Contains(t, types, domain.EventTypeApprovalRequired)
	assert.Contains(t, types, domain.EventTypeApprovalDecision)

	msgs, err := svc.GetRunMessages(ctx, fc.RunID, domain.StepIntake.String())
	require.NoError(t, err)
	require.NotEmpty(t, msgs)
	assert.Equal(t, flow.NameCustomerBot, msgs[0].Role)
	assert.Equal(t, 0, msgs[0].Ordinal)

	approvals, err := svc.store.ListPendingApprovals(ctx, time.Now().Add(time.Hour), 0)
	require.NoError(t, err)
	assert.Empty(t, approvals)
}

func TestStartRecordsFailedRun(t *testing.T) {
	ctx := context.Background()
	client := llm.NewMockClient().FailWhen("You are a financial advisor", errors.New("model down"))
	svc := newTestService(t, client, time.Minute)

	fc, err := svc.Start(ctx, nil, &scriptedHuman{replies: []string{"bye"}})
	require.Error(t, err)
	assert.Equal(t, domain.StepAdvisorySynthesis, fc.Err.Step)

	run, err := svc.GetRun(ctx, fc.RunID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusFailed, run.Status)

	var payload runFailedPayload
	require.NoError(t, json.Unmarshal(run.Error, &payload))
	assert.Equal(t, "advisory-synthesis", payload.Step)

	events, err := svc.GetRunEvents(ctx, fc.RunID, 0, []string{string(domain.EventTypeStepFailed)}, 0)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestStartRecordsCancelledRun(t *testing.T) {
	svc := newTestService(t, llm.NewMockClient(), time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	fc, err := svc.Start(ctx, nil, &scriptedHuman{})
	require.ErrorIs(t, err, domain.ErrCancelled)

	run, err := svc.GetRun(context.Background(), fc.RunID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusCancelled, run.Status)
}

func TestApprovalSweeperExpiresStaleApprovals(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, llm.NewMockClient(), time.Millisecond)
	require.NoError(t, svc.store.CreateRun(ctx, &domain.Run{RunID: "run_1", Status: domain.RunStatusRunning, StartedAt: time.Now()}))

	id, err := svc.RequestApproval(ctx, "run_1", "Open an ISA")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	assert.Equal(t, 1, svc.sweepApprovals(ctx))
	assert.Equal(t, 0, svc.sweepApprovals(ctx))

	ap, err := svc.GetApproval(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalStatusExpired, ap.Status)

	err = svc.DecideApproval(ctx, id, domain.ApprovalStatusApproved, "boss_manager", "")
	assert.ErrorIs(t, err, domain.ErrApprovalExpired)
}

func TestDecideApprovalUnknownID(t *testing.T) {
	svc := newTestService(t, llm.NewMockClient(), time.Minute)
	err := svc.DecideApproval(context.Background(), "apr_missing", domain.ApprovalStatusApproved, "x", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
