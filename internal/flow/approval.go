package flow

import (
	"context"
	"errors"
	"fmt"

	"github.com/xiaot623/fingenie/internal/domain"
	"github.com/xiaot623/fingenie/internal/logger"
	"github.com/xiaot623/fingenie/internal/policy"
)

// DecidedByPolicy is recorded as the decider of auto-approved recommendations.
const DecidedByPolicy = "policy"

// runApproval asks the approval policy first and only involves the human
// approver when the policy requires it.
func runApproval(ctx context.Context, o *Orchestrator, fc *domain.FlowContext) (string, error) {
	rec, err := priorArtifact(fc, domain.StepAdvisorySynthesis)
	if err != nil {
		return "", err
	}
	log := logger.FromContext(ctx)

	decision := policy.Result{Decision: domain.PolicyDecisionRequireApproval}
	if o.policy != nil {
		decision, err = o.policy.Evaluate(ctx, policy.Input{
			Recommendation: rec,
			Step:           domain.StepApproval.String(),
			AutoApprove:    o.cfg.AutoApprove,
		})
		if err != nil {
			return "", fmt.Errorf("failed to evaluate approval policy: %w", err)
		}
	}
	o.observer.PolicyDecided(ctx, decision)
	log.Info("policy decided", "decision", decision.Decision, "reason", decision.Reason)

	switch decision.Decision {
	case domain.PolicyDecisionBlock:
		return "", fmt.Errorf("%w: %s", domain.ErrBlockedByPolicy, decision.Reason)
	case domain.PolicyDecisionAllow:
		id := o.requestApproval(ctx, fc.RunID, rec)
		if err := o.decideApproval(ctx, id, domain.ApprovalStatusApproved, DecidedByPolicy, decision.Reason); err != nil {
			return "", err
		}
		return ApprovedPrefix + rec, nil
	}

	approvalID := o.requestApproval(ctx, fc.RunID, rec)

	tr := Transition{MaxRounds: 1, Summary: lastMessage}
	reply, err := o.converse(ctx, domain.StepApproval, tr, o.roster.RelationshipManagerRelay(), o.roster.BossManager(), rec)
	if err != nil {
		return "", err
	}

	status, comments := policy.ClassifyReply(reply)
	if err := o.decideApproval(ctx, approvalID, status, NameBossManager, comments); err != nil {
		return "", err
	}
	log.Info("approval decided", "status", status)
	return approvalArtifact(status, rec, comments), nil
}

// requestApproval returns "" when there is no recorder or the record could
// not be written. A missing record does not stop the approval.
func (o *Orchestrator) requestApproval(ctx context.Context, runID, rec string) string {
	if o.approvals == nil {
		return ""
	}
	id, err := o.approvals.RequestApproval(ctx, runID, rec)
	if err != nil {
		logger.FromContext(ctx).Warn("failed to record approval request", "error", err)
		return ""
	}
	return id
}

// decideApproval only fails when the approval expired before the decision.
func (o *Orchestrator) decideApproval(ctx context.Context, id string, status domain.ApprovalStatus, by, reason string) error {
	if id == "" {
		return nil
	}
	err := o.approvals.DecideApproval(ctx, id, status, by, reason)
	if errors.Is(err, domain.ErrApprovalExpired) {
		return err
	}
	if err != nil {
		logger.FromContext(ctx).Warn("failed to record approval decision", "approval_id", id, "error", err)
	}
	return nil
}

func approvalArtifact(status domain.ApprovalStatus, rec, comments string) string {
	if status == domain.ApprovalStatusRejected {
		return RejectedPrefix + rec
	}
	if comments != "" {
		return ApprovedPrefix + rec + commentsLabel + comments
	}
	return ApprovedPrefix + rec
}
