package flow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/fingenie/internal/adapter/llm"
	"github.com/xiaot623/fingenie/internal/domain"
	"github.com/xiaot623/fingenie/internal/policy"
)

type scriptedHuman struct {
	mu      sync.Mutex
	replies []string
	prompts []string
}

func (s *scriptedHuman) Ask(ctx context.Context, _ string, prompt string) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
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

type stubRetriever struct {
	queries []string
	err     error
}

func (s *stubRetriever) Retrieve(_ context.Context, query string, k int, _ string) (domain.RetrievalResult, error) {
	s.queries = append(s.queries, query)
	if s.err != nil {
		return domain.RetrievalResult{}, s.err
	}
	hits := []domain.Hit{
		{ID: "1", Document: "Easy access saver paying 4.1% AER.", Metadata: map[string]any{"url": "https://example.test/saver"}, Score: 0.9},
		{ID: "2", Document: "Stocks and shares ISA with a 0.25% fee.", Metadata: map[string]any{"url": "https://example.test/isa"}, Score: 0.8},
	}
	if k < len(hits) {
		hits = hits[:k]
	}
	return domain.RetrievalResult{Query: query, Hits: hits}, nil
}

type stubMacro struct{ text string }

func (s stubMacro) Analyze(context.Context, string) (string, error) { return s.text, nil }

type recordingObserver struct {
	BaseObserver
	mu       sync.Mutex
	statuses []string
	messages map[domain.Step]int
	policies []policy.Result
}

func (r *recordingObserver) Status(_ context.Context, _ domain.Step, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, text)
}

func (r *recordingObserver) Message(_ context.Context, step domain.Step, _ domain.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.messages == nil {
		r.messages = make(map[domain.Step]int)
	}
	r.messages[step]++
}

func (r *recordingObserver) PolicyDecided(_ context.Context, res policy.Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policies = append(r.policies, res)
}

type memoryApprovals struct {
	mu        sync.Mutex
	requested []string
	decisions map[string]domain.ApprovalStatus
	decidedBy map[string]string
	expired   bool
	writeErr  error
}

func (m *memoryApprovals) RequestApproval(_ context.Context, runID, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return "", m.writeErr
	}
	id := "apr_" + runID
	m.requested = append(m.requested, id)
	return id, nil
}

func (m *memoryApprovals) DecideApproval(_ context.Context, id string, status domain.ApprovalStatus, by, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.expired {
		return domain.ErrApprovalExpired
	}
	if m.writeErr != nil {
		return m.writeErr
	}
	if m.decisions == nil {
		m.decisions = make(map[string]domain.ApprovalStatus)
		m.decidedBy = make(map[string]string)
	}
	m.decisions[id] = status
	m.decidedBy[id] = by
	return nil
}

type fixture struct {
	client    *llm.MockClient
	customer  *scriptedHuman
	approver  *scriptedHuman
	retriever *stubRetriever
	observer  *recordingObserver
	approvals *memoryApprovals
}

func newFixture() *fixture {
	return &fixture{
		client:    llm.NewMockClient(),
		customer:  &scriptedHuman{replies: []string{"I earn 60k a year", "About 20k saved", "Buy a house in five years"}},
		approver:  &scriptedHuman{replies: []string{"approve"}},
		retriever: &stubRetriever{},
		observer:  &recordingObserver{},
		approvals: &memoryApprovals{},
	}
}

func (f *fixture) orchestrator(cfg Config, opts ...Option) *Orchestrator {
	roster := &Roster{Client: f.client, Model: "mock", Customer: f.customer, Approver: f.approver}
	opts = append([]Option{WithObserver(f.observer), WithApprovals(f.approvals)}, opts...)
	return New(roster, f.retriever, stubMacro{text: "Inflation is easing and rates are expected to fall."}, cfg, opts...)
}

func TestRunCompletesAllSteps(t *testing.T) {
	f := newFixture()
	o := f.orchestrator(Config{TopK: 2})

	fc, err := o.Run(context.Background(), "run_ok")
	require.NoError(t, err)
	require.Nil(t, fc.Err)
	assert.Equal(t, domain.AllSteps, fc.Steps())

	profile, _ := fc.Get(domain.StepIntake)
	assert.True(t, strings.HasPrefix(profile, "Mock summary:"), profile)

	final, _ := fc.Get(domain.StepApproval)
	assert.True(t, strings.HasPrefix(final, ApprovedPrefix), final)
	assert.Contains(t, final, "Mock advice")

	require.Len(t, f.retriever.queries, 1)
	extraction, _ := fc.Get(domain.StepRequirementExtraction)
	assert.Equal(t, extraction, f.retriever.queries[0])

	assert.Len(t, f.observer.statuses, len(domain.AllSteps))
	assert.Equal(t, 2, f.observer.messages[domain.StepRequirementExtraction])
	assert.Equal(t, 2, f.observer.messages[domain.StepApproval])
	require.Len(t, f.observer.policies, 1)
	assert.Equal(t, domain.PolicyDecisionRequireApproval, f.observer.policies[0].Decision)
	assert.Equal(t, domain.ApprovalStatusApproved, f.approvals.decisions["apr_run_ok"])
	assert.Equal(t, NameBossManager, f.approvals.decidedBy["apr_run_ok"])

	// The approver is shown the advisor's output.
	require.Len(t, f.approver.prompts, 1)
	assert.Contains(t, f.approver.prompts[0], "Mock advice")
}

func TestRunAdvisoryFailureKeepsPriorArtifacts(t *testing.T) {
	f := newFixture()
	cause := errors.New("model unavailable")
	f.client.FailWhen("You are a financial advisor", cause)
	o := f.orchestrator(Config{TopK: 2})

	fc, err := o.Run(context.Background(), "run_fail")
	require.Error(t, err)

	var stepErr *domain.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, domain.StepAdvisorySynthesis, stepErr.Step)
	assert.ErrorIs(t, err, cause)
	assert.True(t, domain.IsExternal(err, domain.KindModel))

	assert.Equal(t, []domain.Step{
		domain.StepIntake,
		domain.StepRequirementExtraction,
		domain.StepRecommendation,
		domain.StepMacroContext,
	}, fc.Steps())
	_, ok := fc.Get(domain.StepAdvisorySynthesis)
	assert.False(t, ok)
	assert.Same(t, stepErr, fc.Err)
	assert.Empty(t, f.approvals.requested)
}

func TestRunRetrievalFailure(t *testing.T) {
	f := newFixture()
	f.retriever.err = domain.NewExternalError(domain.KindVectorStore, "search", errors.New("down"))
	o := f.orchestrator(Config{TopK: 2})

	fc, err := o.Run(context.Background(), "run_rag")
	require.Error(t, err)
	assert.Equal(t, domain.StepRecommendation, fc.Err.Step)
	assert.True(t, domain.IsExternal(err, domain.KindVectorStore))
	assert.Len(t, fc.Steps(), 2)
}

func TestRunCancelledDuringIntake(t *testing.T) {
	f := newFixture()
	f.customer.replies = nil
	o := f.orchestrator(Config{})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	fc, err := o.Run(ctx, "run_cancel")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCancelled)
	assert.Equal(t, domain.StepIntake, fc.Err.Step)
	assert.Empty(t, fc.Steps())
	assert.Len(t, f.customer.prompts, 1)
}

func TestRunCustomerExitEndsIntake(t *testing.T) {
	f := newFixture()
	f.customer.replies = []string{"Hello", "bye"}
	o := f.orchestrator(Config{})

	fc, err := o.Run(context.Background(), "run_bye")
	require.NoError(t, err)
	assert.Len(t, f.customer.prompts, 2)
	assert.Equal(t, domain.AllSteps, fc.Steps())
}

type fixedPolicy struct{ res policy.Result }

func (p fixedPolicy) Evaluate(context.Context, policy.Input) (policy.Result, error) { return p.res, nil }

func TestApprovalPolicyDecisions(t *testing.T) {
	t.Run("block", func(t *testing.T) {
		f := newFixture()
		o := f.orchestrator(Config{}, WithPolicy(fixedPolicy{policy.Result{Decision: domain.PolicyDecisionBlock, Reason: "empty"}}))

		fc, err := o.Run(context.Background(), "run_block")
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrBlockedByPolicy)
		assert.Equal(t, domain.StepApproval, fc.Err.Step)
		assert.Empty(t, f.approver.prompts)
	})

	t.Run("allow", func(t *testing.T) {
		f := newFixture()
		o := f.orchestrator(Config{}, WithPolicy(fixedPolicy{policy.Result{Decision: domain.PolicyDecisionAllow}}))

		fc, err := o.Run(context.Background(), "run_allow")
		require.NoError(t, err)
		final, _ := fc.Get(domain.StepApproval)
		assert.True(t, strings.HasPrefix(final, ApprovedPrefix))
		assert.Empty(t, f.approver.prompts)
		assert.Equal(t, DecidedByPolicy, f.approvals.decidedBy["apr_run_allow"])
	})

	t.Run("engine", func(t *testing.T) {
		f := newFixture()
		engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
		require.NoError(t, err)
		o := f.orchestrator(Config{AutoApprove: true}, WithPolicy(engine))

		_, err = o.Run(context.Background(), "run_engine")
		require.NoError(t, err)
		require.Len(t, f.observer.policies, 1)
		assert.Equal(t, domain.PolicyDecisionAllow, f.observer.policies[0].Decision)
	})
}

func TestApprovalReplies(t *testing.T) {
	cases := []struct {
		reply  string
		prefix string
		status domain.ApprovalStatus
		extra  string
	}{
		{reply: "reject", prefix: RejectedPrefix, status: domain.ApprovalStatusRejected},
		{reply: "Looks fine, check the ISA allowance", prefix: ApprovedPrefix, status: domain.ApprovalStatusApproved, extra: "Approver comments: Looks fine, check the ISA allowance"},
	}
	for _, tc := range cases {
		t.Run(tc.reply, func(t *testing.T) {
			f := newFixture()
			f.approver.replies = []string{tc.reply}
			o := f.orchestrator(Config{})

			fc, err := o.Run(context.Background(), "run_reply")
			require.NoError(t, err)
			final, _ := fc.Get(domain.StepApproval)
			assert.True(t, strings.HasPrefix(final, tc.prefix), final)
			if tc.extra != "" {
				assert.Contains(t, final, tc.extra)
			}
			assert.Equal(t, tc.status, f.approvals.decisions["apr_run_reply"])
		})
	}
}

func TestApprovalExpiredWhileWaiting(t *testing.T) {
	f := newFixture()
	f.approvals.expired = true
	o := f.orchestrator(Config{})

	fc, err := o.Run(context.Background(), "run_expired")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrApprovalExpired)
	assert.Equal(t, domain.StepApproval, fc.Err.Step)
}

func TestApprovalSurvivesRecordFailures(t *testing.T) {
	f := newFixture()
	f.approvals.writeErr = errors.New("disk full")
	o := f.orchestrator(Config{})

	fc, err := o.Run(context.Background(), "run_disk_full")
	require.NoError(t, err)
	assert.Equal(t, domain.AllSteps, fc.Steps())
	final, _ := fc.Get(domain.StepApproval)
	assert.True(t, strings.HasPrefix(final, ApprovedPrefix), final)
	assert.Len(t, f.approver.prompts, 1)
}

func TestRosterTemperatureOverride(t *testing.T) {
	client := llm.NewMockClient("ok", "ok")
	cold := 0.0
	defaults := &Roster{Client: client, Model: "mock"}
	overridden := &Roster{Client: client, Model: "mock", Temperature: &cold}
	history := []domain.Message{{Role: NameCustomerBot, Content: "Hello"}, {Role: "customer", Content: "Hi"}}

	_, err := defaults.CustomerBot().Respond(context.Background(), history)
	require.NoError(t, err)
	_, err = overridden.CustomerBot().Respond(context.Background(), history)
	require.NoError(t, err)

	calls := client.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, customerBotTemperature, *calls[0].Temperature)
	assert.Equal(t, 0.0, *calls[1].Temperature)
}

func TestTableOrder(t *testing.T) {
	table := DefaultTable()
	var got []domain.Step
	for s := domain.StepIntake; s != 0; s = table.Next(s) {
		got = append(got, s)
	}
	assert.Equal(t, domain.AllSteps, got)
}

func TestFinalMessages(t *testing.T) {
	fc := domain.NewFlowContext("run_final")
	require.NoError(t, fc.Set(domain.StepAdvisorySynthesis, "Split 60/40."))
	require.NoError(t, fc.Set(domain.StepApproval, ApprovedPrefix+"Split 60/40."))

	msgs := FinalMessages(fc)
	require.Len(t, msgs, 3)
	assert.Equal(t, FinalIntro, msgs[0].Content)
	assert.Equal(t, "Financial Analysis:\nSplit 60/40.", msgs[1].Content)
	assert.Equal(t, NameBossManager, msgs[2].Role)
}
