package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/xiaot623/fingenie/internal/domain"
	"github.com/xiaot623/fingenie/internal/logger"
)

const approvalSweepBatch = 100

type approvalPayload struct {
	ApprovalID string                `json:"approval_id"`
	Status     domain.ApprovalStatus `json:"status,omitempty"`
	DecidedBy  string                `json:"decided_by,omitempty"`
	Reason     string                `json:"reason,omitempty"`
}

// RequestApproval records a PENDING approval for the recommendation.
func (s *RunService) RequestApproval(ctx context.Context, runID, recommendation string) (string, error) {
	approval := &domain.Approval{
		ApprovalID:     "apr_" + uuid.New().String()[:8],
		RunID:          runID,
		Status:         domain.ApprovalStatusPending,
		Recommendation: recommendation,
		CreatedAt:      time.Now(),
	}
	if err := s.store.CreateApproval(ctx, approval); err != nil {
		return "", fmt.Errorf("failed to create approval: %w", err)
	}
	s.recordEvent(ctx, runID, domain.EventTypeApprovalRequired, approvalPayload{ApprovalID: approval.ApprovalID})
	return approval.ApprovalID, nil
}

// DecideApproval settles a PENDING approval. It returns
// domain.ErrApprovalExpired when the approval was already settled, which in
// practice means the sweeper got to it first.
func (s *RunService) DecideApproval(ctx context.Context, approvalID string, status domain.ApprovalStatus, decidedBy, reason string) error {
	approval, err := s.store.GetApproval(ctx, approvalID)
	if err != nil {
		return fmt.Errorf("failed to get approval: %w", err)
	}
	updated, err := s.store.DecideApproval(ctx, approvalID, status, decidedBy, reason)
	if err != nil {
		return fmt.Errorf("failed to update approval status: %w", err)
	}
	if !updated {
		return fmt.Errorf("%w: %s", domain.ErrApprovalExpired, approvalID)
	}
	s.recordEvent(ctx, approval.RunID, domain.EventTypeApprovalDecision, approvalPayload{
		ApprovalID: approvalID,
		Status:     status,
		DecidedBy:  decidedBy,
		Reason:     reason,
	})
	return nil
}

func (s *RunService) GetApproval(ctx context.Context, approvalID string) (*domain.Approval, error) {
	approval, err := s.store.GetApproval(ctx, approvalID)
	if err != nil {
		return nil, fmt.Errorf("failed to get approval: %w", err)
	}
	return approval, nil
}

// RunApprovalSweeper expires stale PENDING approvals until ctx is done.
func (s *RunService) RunApprovalSweeper(ctx context.Context, interval time.Duration) {
	if s.approvalTimeout <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepApprovals(ctx)
		}
	}
}

func (s *RunService) sweepApprovals(ctx context.Context) int {
	sweepCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	log := logger.FromContext(ctx)

	stale, err := s.store.ListPendingApprovals(sweepCtx, time.Now().Add(-s.approvalTimeout), approvalSweepBatch)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Warn("approval sweep failed", "error", err)
		}
		return 0
	}

	expired := 0
	for _, ap := range stale {
		updated, err := s.store.ExpireApprovalIfPending(sweepCtx, ap.ApprovalID, "approval_timeout")
		if err != nil {
			log.Warn("failed to expire approval", "approval_id", ap.ApprovalID, "error", err)
			continue
		}
		if !updated {
			continue
		}
		expired++
		s.recordEvent(sweepCtx, ap.RunID, domain.EventTypeApprovalDecision, approvalPayload{
			ApprovalID: ap.ApprovalID,
			Status:     domain.ApprovalStatusExpired,
			Reason:     "approval_timeout",
		})
	}
	return expired
}
