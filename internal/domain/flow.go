package domain

import (
	"fmt"
	"sync"
)

// Step identifies one stage of the advisory flow.
type Step int

const (
	StepIntake Step = iota + 1
	StepRequirementExtraction
	StepRecommendation
	StepMacroContext
	StepAdvisorySynthesis
	StepApproval
)

// AllSteps lists the steps in execution order.
var AllSteps = []Step{
	StepIntake,
	StepRequirementExtraction,
	StepRecommendation,
	StepMacroContext,
	StepAdvisorySynthesis,
	StepApproval,
}

func (s Step) String() string {
	switch s {
	case StepIntake:
		return "intake"
	case StepRequirementExtraction:
		return "requirement-extraction"
	case StepRecommendation:
		return "retrieval-augmented-recommendation"
	case StepMacroContext:
		return "macro-context"
	case StepAdvisorySynthesis:
		return "advisory-synthesis"
	case StepApproval:
		return "approval"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// StepError records which step aborted a flow and why.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// FlowContext accumulates the textual artifact produced by each step.
// Keys are append-only: once a step has an artifact it is never replaced
// or removed.
type FlowContext struct {
	RunID string
	Err   *StepError

	mu        sync.RWMutex
	order     []Step
	artifacts map[Step]string
}

// NewFlowContext creates an empty context for a run.
func NewFlowContext(runID string) *FlowContext {
	return &FlowContext{
		RunID:     runID,
		artifacts: make(map[Step]string),
	}
}

// Set records the artifact for step. Writing a step twice is an error.
func (fc *FlowContext) Set(step Step, artifact string) error {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	if _, ok := fc.artifacts[step]; ok {
		return fmt.Errorf("%w: %s", ErrArtifactExists, step)
	}
	fc.artifacts[step] = artifact
	fc.order = append(fc.order, step)
	return nil
}

// Get returns the artifact for step, if one was recorded.
func (fc *FlowContext) Get(step Step) (string, bool) {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	v, ok := fc.artifacts[step]
	return v, ok
}

// Steps returns the completed steps in the order they were recorded.
func (fc *FlowContext) Steps() []Step {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	out := make([]Step, len(fc.order))
	copy(out, fc.order)
	return out
}

// Snapshot returns a copy of the artifacts keyed by step name.
func (fc *FlowContext) Snapshot() map[string]string {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	out := make(map[string]string, len(fc.artifacts))
	for step, v := range fc.artifacts {
		out[step.String()] = v
	}
	return out
}

// Fail marks the flow as aborted at step.
func (fc *FlowContext) Fail(step Step, err error) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.Err = &StepError{Step: step, Err: err}
}
