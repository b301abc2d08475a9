package domain

// Message is a single utterance in a conversation transcript.
// Messages are never mutated once appended.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Ordinal int    `json:"ordinal"`
}

// SessionState is the lifecycle state of a two-party conversation.
type SessionState int

const (
	SessionIdle SessionState = iota
	SessionActive
	SessionTerminatedByPredicate
	SessionTerminatedByRoundLimit
	SessionTerminatedByCancel
)

func (s SessionState) String() string {
	switch s {
	case SessionIdle:
		return "idle"
	case SessionActive:
		return "active"
	case SessionTerminatedByPredicate:
		return "terminated_by_predicate"
	case SessionTerminatedByRoundLimit:
		return "terminated_by_round_limit"
	case SessionTerminatedByCancel:
		return "terminated_by_cancel"
	default:
		return "unknown"
	}
}

// Terminal reports whether no more messages can be appended.
func (s SessionState) Terminal() bool {
	return s == SessionTerminatedByPredicate ||
		s == SessionTerminatedByRoundLimit ||
		s == SessionTerminatedByCancel
}
