package domain

import (
	"encoding/json"
	"time"
)

// Run represents a single end-to-end advisory flow execution.
type Run struct {
	RunID     string          `json:"run_id"`
	Status    RunStatus       `json:"status"`
	StartedAt time.Time       `json:"started_at"`
	EndedAt   *time.Time      `json:"ended_at,omitempty"`
	Error     json.RawMessage `json:"error,omitempty"`
}

// Event represents a trace event for replay.
type Event struct {
	EventID string          `json:"event_id"`
	RunID   string          `json:"run_id"`
	Ts      int64           `json:"ts"` // Unix milliseconds
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// StoredMessage is a transcript message persisted against a run.
type StoredMessage struct {
	MessageID string    `json:"message_id"`
	RunID     string    `json:"run_id"`
	Step      string    `json:"step"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Ordinal   int       `json:"ordinal"`
	CreatedAt time.Time `json:"created_at"`
}

// Approval represents a pending or decided human approval of a recommendation.
type Approval struct {
	ApprovalID     string         `json:"approval_id"`
	RunID          string         `json:"run_id"`
	Status         ApprovalStatus `json:"status"`
	Recommendation string         `json:"recommendation"`
	CreatedAt      time.Time      `json:"created_at"`
	DecidedAt      *time.Time     `json:"decided_at,omitempty"`
	DecidedBy      string         `json:"decided_by,omitempty"`
	Reason         string         `json:"reason,omitempty"`
}
