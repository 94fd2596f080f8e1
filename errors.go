package eventflow

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrStoreClosed is returned by store operations after Close.
	ErrStoreClosed = errors.New("message store is closed")

	// ErrStreamNotFound is returned when a stream has no stored records.
	ErrStreamNotFound = errors.New("stream not found")

	// ErrMessageNotFound is returned by lifecycle operations on an unknown
	// message id.
	ErrMessageNotFound = errors.New("message not found")
)

// AssociationError reports an event or command type that declares neither a
// stream nor an aggregate association.
type AssociationError struct {
	TypeName string
}

func (e *AssociationError) Error() string {
	return fmt.Sprintf("type %s needs to be associated with an aggregate or a stream", e.TypeName)
}

// MissingIdentifierError reports an aggregate type registered without an
// identifier. Raised at registration time, not during replay.
type MissingIdentifierError struct {
	AggregateType string
}

func (e *MissingIdentifierError) Error() string {
	return fmt.Sprintf("aggregate %s needs to declare an identifier", e.AggregateType)
}

// UnknownProjectionError reports a stored event type with no projection
// registered for the aggregate being replayed.
type UnknownProjectionError struct {
	AggregateType string
	EventType     string
}

func (e *UnknownProjectionError) Error() string {
	return fmt.Sprintf("no projection registered on aggregate %s for event %s", e.AggregateType, e.EventType)
}

// DuplicateIdentifierError reports an append that collided on message id.
type DuplicateIdentifierError struct {
	MessageID uuid.UUID
}

func (e *DuplicateIdentifierError) Error() string {
	return fmt.Sprintf("message %s already stored", e.MessageID)
}

// StateTransitionError reports a record status transition attempted out of
// order. Transitions only move forward: NEW, PUBLISHED, CONSUMED.
type StateTransitionError struct {
	MessageID uuid.UUID
	From      Status
	To        Status
}

func (e *StateTransitionError) Error() string {
	return fmt.Sprintf("message %s cannot transition from %s to %s", e.MessageID, e.From, e.To)
}

// StreamRevisionConflictError reports an optimistic concurrency failure on
// append when the message carried an expected version.
type StreamRevisionConflictError struct {
	Stream   string
	Expected uint64
	Actual   uint64
}

func (e *StreamRevisionConflictError) Error() string {
	return fmt.Sprintf("stream %q revision conflict: expected %d, got %d", e.Stream, e.Expected, e.Actual)
}

// ErrSkippedMessage is returned when no handler matches the message type.
type ErrSkippedMessage struct {
	Type string
}

func (e *ErrSkippedMessage) Error() string {
	return fmt.Sprintf("skipped message of type %s", e.Type)
}

// StoreError wraps backend persistence failures.
type StoreError struct {
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("message store error: %v", e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// WrapStoreError wraps err in a StoreError, or returns nil for a nil err.
func WrapStoreError(err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Err: err}
}
