package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrCancelled is returned when a conversation is interrupted, typically
	// because the transport went away while a human reply was pending.
	ErrCancelled = errors.New("conversation cancelled")
	// ErrNoReply is returned by agents that only relay messages.
	ErrNoReply = errors.New("agent does not generate replies")
	// ErrArtifactExists is returned when a flow step is written twice.
	ErrArtifactExists = errors.New("artifact already recorded for step")
	// ErrMissingConfig is returned by config validation at startup.
	ErrMissingConfig = errors.New("missing configuration")
	// ErrBlockedByPolicy is returned when the approval policy blocks a recommendation.
	ErrBlockedByPolicy = errors.New("recommendation blocked by policy")
	// ErrNotFound is returned by the repository for unknown ids.
	ErrNotFound = errors.New("not found")
	// ErrApprovalExpired is returned when a decision arrives after the
	// approval was swept.
	ErrApprovalExpired = errors.New("approval expired")
)

// ExternalKind classifies a failing collaborator.
type ExternalKind string

const (
	KindModel       ExternalKind = "model"
	KindVectorStore ExternalKind = "vector_store"
	KindEmbedding   ExternalKind = "embedding"
	KindSearch      ExternalKind = "search"
	KindFetch       ExternalKind = "fetch"
)

// ExternalError wraps a failure of an external dependency (model call,
// vector store, search engine) with the operation that triggered it.
type ExternalError struct {
	Kind ExternalKind
	Op   string
	Err  error
}

func (e *ExternalError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s failure: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s failure during %s: %v", e.Kind, e.Op, e.Err)
}

func (e *ExternalError) Unwrap() error {
	return e.Err
}

// NewExternalError wraps err as an ExternalError. A nil err returns nil.
func NewExternalError(kind ExternalKind, op string, err error) error {
	if err == nil {
		return nil
	}
	var ext *ExternalError
	if errors.As(err, &ext) && ext.Kind == kind {
		return err
	}
	return &ExternalError{Kind: kind, Op: op, Err: err}
}

// IsExternal reports whether err came from an external dependency of the given kind.
func IsExternal(err error, kind ExternalKind) bool {
	var ext *ExternalError
	return errors.As(err, &ext) && ext.Kind == kind
}
