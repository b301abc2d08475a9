// Package domain defines the core domain models for FinGenie.
package domain

// RunStatus represents the status of a run.
type RunStatus string

const (
	RunStatusCreated   RunStatus = "CREATED"
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusDone      RunStatus = "DONE"
	RunStatusFailed    RunStatus = "FAILED"
	RunStatusCancelled RunStatus = "CANCELLED"
)

// EventType represents the type of an event.
type EventType string

const (
	EventTypeRunStarted   EventType = "run_started"
	EventTypeStepStarted  EventType = "step_started"
	EventTypeStepDone     EventType = "step_done"
	EventTypeStepFailed   EventType = "step_failed"
	EventTypeMessage      EventType = "message"
	EventTypeStatus       EventType = "status"
	EventTypeRunDone      EventType = "run_done"
	EventTypeRunFailed    EventType = "run_failed"
	EventTypeRunCancelled EventType = "run_cancelled"

	// Approval events
	EventTypePolicyDecision   EventType = "policy_decision"
	EventTypeApprovalRequired EventType = "approval_required"
	EventTypeApprovalDecision EventType = "approval_decision"
)

// ApprovalStatus represents the status of an approval.
type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "PENDING"
	ApprovalStatusApproved ApprovalStatus = "APPROVED"
	ApprovalStatusRejected ApprovalStatus = "REJECTED"
	ApprovalStatusExpired  ApprovalStatus = "EXPIRED"
)

// PolicyDecision is the outcome of evaluating the approval policy.
type PolicyDecision string

const (
	PolicyDecisionAllow           PolicyDecision = "allow"
	PolicyDecisionRequireApproval PolicyDecision = "require_approval"
	PolicyDecisionBlock           PolicyDecision = "block"
)
