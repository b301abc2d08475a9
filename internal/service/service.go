// Package service runs advisory flows and keeps their run log.
package service

import (
	"time"

	"github.com/xiaot623/fingenie/internal/adapter/llm"
	"github.com/xiaot623/fingenie/internal/agent"
	"github.com/xiaot623/fingenie/internal/flow"
	"github.com/xiaot623/fingenie/internal/metrics"
	"github.com/xiaot623/fingenie/internal/repository"
)

// Dependencies are the collaborators shared by every run.
type Dependencies struct {
	Client llm.LLMClient
	Model  string
	// Temperature overrides the per-agent defaults when not nil.
	Temperature *float64
	Retriever   flow.Retriever
	Macro       flow.MacroAnalyst
	Policy      flow.PolicyEvaluator
	Flow        flow.Config
	// Approver signs off recommendations. When nil the customer's channel
	// is used.
	Approver agent.HumanChannel
}

type RunService struct {
	store           repository.Store
	metrics         *metrics.Service
	deps            Dependencies
	approvalTimeout time.Duration
}

// New creates a RunService. A nil metrics service records nothing.
func New(store repository.Store, m *metrics.Service, deps Dependencies, approvalTimeout time.Duration) *RunService {
	if m == nil {
		m = metrics.NewNoop()
	}
	return &RunService{
		store:           store,
		metrics:         m,
		deps:            deps,
		approvalTimeout: approvalTimeout,
	}
}
