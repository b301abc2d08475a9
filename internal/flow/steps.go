package flow

import (
	"context"
	"fmt"

	"github.com/xiaot623/fingenie/internal/agent"
	"github.com/xiaot623/fingenie/internal/conversation"
	"github.com/xiaot623/fingenie/internal/domain"
	"github.com/xiaot623/fingenie/internal/knowledge"
	"github.com/xiaot623/fingenie/internal/logger"
)

// StepRunner executes a step that is not a plain two-party chat and returns
// its artifact.
type StepRunner func(ctx context.Context, o *Orchestrator, fc *domain.FlowContext) (string, error)

// Transition describes one entry of the step table.
type Transition struct {
	// Status is shown to the customer when the step starts.
	Status string
	// Participants returns the opener (A) and the responder (B).
	Participants func(r *Roster) (a, b *agent.Agent)
	// Opener builds A's first message from earlier artifacts.
	Opener    func(ctx context.Context, o *Orchestrator, fc *domain.FlowContext) (string, error)
	MaxRounds int
	Summary   func(o *Orchestrator) conversation.Summarizer
	// Runner replaces the session for steps that are not chats.
	Runner StepRunner
	// Next is zero for the final step.
	Next domain.Step
}

// Table maps every step to its transition.
type Table map[domain.Step]Transition

// Next returns the step after s, or zero when s is the last one.
func (t Table) Next(s domain.Step) domain.Step {
	return t[s].Next
}

func lastMessage(*Orchestrator) conversation.Summarizer { return conversation.LastMessage{} }

// DefaultTable is the advisory flow:
// intake → requirement-extraction → recommendation → macro-context →
// advisory-synthesis → approval.
func DefaultTable() Table {
	return Table{
		domain.StepIntake: {
			Status: "Gathering your financial profile...",
			Participants: func(r *Roster) (*agent.Agent, *agent.Agent) {
				return r.CustomerBot(), r.HumanProxy()
			},
			Opener: func(context.Context, *Orchestrator, *domain.FlowContext) (string, error) {
				return welcomeMessage, nil
			},
			MaxRounds: conversation.DefaultMaxRounds,
			Summary: func(o *Orchestrator) conversation.Summarizer {
				return conversation.Reflection{Client: o.roster.Client, Model: o.roster.Model, Prompt: profileSummaryPrompt}
			},
			Next: domain.StepRequirementExtraction,
		},
		domain.StepRequirementExtraction: {
			Status: "Extracting your product requirements...",
			Participants: func(r *Roster) (*agent.Agent, *agent.Agent) {
				return r.RMMind(), r.RelationshipManager()
			},
			Opener: func(_ context.Context, _ *Orchestrator, fc *domain.FlowContext) (string, error) {
				profile, err := priorArtifact(fc, domain.StepIntake)
				if err != nil {
					return "", err
				}
				return extractionTemplate + profile, nil
			},
			MaxRounds: 1,
			Summary:   lastMessage,
			Next:      domain.StepRecommendation,
		},
		domain.StepRecommendation: {
			Status: "Searching for relevant products...",
			Participants: func(r *Roster) (*agent.Agent, *agent.Agent) {
				return r.JuniorAnalyst(), r.RelationshipManager()
			},
			Opener:    recommendationOpener,
			MaxRounds: 1,
			Summary:   lastMessage,
			Next:      domain.StepMacroContext,
		},
		domain.StepMacroContext: {
			Status: "Reviewing the UK macroeconomic outlook...",
			Runner: func(ctx context.Context, o *Orchestrator, _ *domain.FlowContext) (string, error) {
				return o.macro.Analyze(ctx, o.cfg.MacroQuery)
			},
			Next: domain.StepAdvisorySynthesis,
		},
		domain.StepAdvisorySynthesis: {
			Status: "Analyzing profile with Financial Advisor...",
			Participants: func(r *Roster) (*agent.Agent, *agent.Agent) {
				return r.RelationshipManagerRelay(), r.FinancialAdvisor()
			},
			Opener: func(_ context.Context, _ *Orchestrator, fc *domain.FlowContext) (string, error) {
				rec, err := priorArtifact(fc, domain.StepRecommendation)
				if err != nil {
					return "", err
				}
				macro, err := priorArtifact(fc, domain.StepMacroContext)
				if err != nil {
					return "", err
				}
				return rec + macroJoin + macro, nil
			},
			MaxRounds: 1,
			Summary:   lastMessage,
			Next:      domain.StepApproval,
		},
		domain.StepApproval: {
			Status: "Getting final approval from Boss Manager...",
			Runner: runApproval,
		},
	}
}

func recommendationOpener(ctx context.Context, o *Orchestrator, fc *domain.FlowContext) (string, error) {
	profile, err := priorArtifact(fc, domain.StepIntake)
	if err != nil {
		return "", err
	}
	query, err := priorArtifact(fc, domain.StepRequirementExtraction)
	if err != nil {
		return "", err
	}
	res, err := o.retriever.Retrieve(ctx, query, o.cfg.TopK, o.cfg.Contains)
	if err != nil {
		return "", fmt.Errorf("failed to retrieve products: %w", err)
	}
	res = knowledge.TrimToBudget(res, o.cfg.MaxTokens)
	logger.FromContext(ctx).Info("products retrieved", "hits", len(res.Hits))
	return fmt.Sprintf(analystTemplate, profile, knowledge.Format(res)), nil
}

func priorArtifact(fc *domain.FlowContext, step domain.Step) (string, error) {
	v, ok := fc.Get(step)
	if !ok {
		return "", fmt.Errorf("missing artifact for step %s", step)
	}
	return v, nil
}
