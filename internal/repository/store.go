// Package repository persists runs, transcripts, events and approvals.
package repository

import (
	"context"
	"time"

	"github.com/xiaot623/fingenie/internal/domain"
)

// Store defines the interface for run log persistence.
type Store interface {
	// Run operations
	CreateRun(ctx context.Context, run *domain.Run) error
	GetRun(ctx context.Context, runID string) (*domain.Run, error)
	ListRuns(ctx context.Context, limit int) ([]domain.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status domain.RunStatus) error
	UpdateRunCompleted(ctx context.Context, runID string, status domain.RunStatus, errData []byte) error

	// Message operations
	CreateMessage(ctx context.Context, message *domain.StoredMessage) error
	GetMessages(ctx context.Context, runID string, step string) ([]domain.StoredMessage, error)

	// Event operations
	CreateEvent(ctx context.Context, event *domain.Event) error
	GetEvents(ctx context.Context, runID string, afterTs int64, types []string, limit int) ([]domain.Event, error)

	// Approval operations
	CreateApproval(ctx context.Context, approval *domain.Approval) error
	GetApproval(ctx context.Context, approvalID string) (*domain.Approval, error)
	DecideApproval(ctx context.Context, approvalID string, status domain.ApprovalStatus, decidedBy string, reason string) (bool, error)
	ListPendingApprovals(ctx context.Context, createdBefore time.Time, limit int) ([]domain.Approval, error)
	ExpireApprovalIfPending(ctx context.Context, approvalID string, reason string) (bool, error)

	Close() error
}

var _ Store = (*SQLiteStore)(nil)
