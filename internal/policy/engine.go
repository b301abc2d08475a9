// Package policy decides whether a recommendation needs human sign-off.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"

	"github.com/xiaot623/fingenie/internal/domain"
)

// Input is the document the approval policy is evaluated against.
type Input struct {
	Recommendation string `json:"recommendation"`
	Step           string `json:"step"`
	AutoApprove    bool   `json:"auto_approve"`
}

// Result is the policy outcome.
type Result struct {
	Decision domain.PolicyDecision
	Reason   string
}

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.approval_policy.decision"),
		rego.Module("approval_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate runs the policy. The rule may return a bare decision string or
// an object {"decision": ..., "reason": ...}. An undefined result requires
// approval.
func (e *Engine) Evaluate(ctx context.Context, in Input) (Result, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(in))
	if err != nil {
		return Result{}, fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return Result{Decision: domain.PolicyDecisionRequireApproval, Reason: "undefined"}, nil
	}

	switch v := results[0].Expressions[0].Value.(type) {
	case string:
		return toResult(v, "")
	case map[string]interface{}:
		decision, _ := v["decision"].(string)
		reason, _ := v["reason"].(string)
		return toResult(decision, reason)
	default:
		return Result{}, fmt.Errorf("unexpected policy result type %T", v)
	}
}

func toResult(decision, reason string) (Result, error) {
	switch d := domain.PolicyDecision(decision); d {
	case domain.PolicyDecisionAllow, domain.PolicyDecisionRequireApproval, domain.PolicyDecisionBlock:
		return Result{Decision: d, Reason: reason}, nil
	default:
		return Result{}, fmt.Errorf("unknown policy decision %q", decision)
	}
}

// DefaultPolicy is the default policy content.
const DefaultPolicy = `
package approval_policy

default decision = {"decision": "require_approval", "reason": "recommendations need sign-off"}

decision = {"decision": "block", "reason": "empty recommendation"} {
	trim_space(input.recommendation) == ""
}

decision = {"decision": "allow", "reason": "auto approve enabled"} {
	trim_space(input.recommendation) != ""
	input.auto_approve
}
`
