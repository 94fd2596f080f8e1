package eventflow

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Status is the publish/consume lifecycle state of a stored record.
// Transitions only move forward: NEW, PUBLISHED, CONSUMED.
type Status string

const (
	StatusNew       Status = "NEW"
	StatusPublished Status = "PUBLISHED"
	StatusConsumed  Status = "CONSUMED"
)

// CanAdvanceTo reports whether next is the single allowed forward transition
// from s.
func (s Status) CanAdvanceTo(next Status) bool {
	switch s {
	case StatusNew:
		return next == StatusPublished
	case StatusPublished:
		return next == StatusConsumed
	default:
		return false
	}
}

// Record is the persisted projection of a Message plus its lifecycle state.
// Records are owned by the store, mutated only through the lifecycle
// operations, and never deleted in normal operation.
type Record struct {
	Message

	Status    Status
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MessageStore is the append-only message log, logically partitioned by
// stream name with a global total order across all streams.
//
// Implementations must guarantee:
//   - Position is monotonic and gapless within a stream; GlobalPosition is a
//     monotonic sequence assigned atomically at append time.
//   - Status transitions are atomic per record: concurrent callers racing on
//     the same transition see exactly one winner.
//   - ReadStream iteration is ascending by position.
type MessageStore interface {
	// Append inserts a new record with status NEW, assigning its stream
	// position and global position. Fails with a DuplicateIdentifierError
	// when the message id collides, and with a StreamRevisionConflictError
	// when the message carries an expected version that does not match the
	// current stream version.
	Append(ctx context.Context, msg Message) (*Record, error)

	// NextToPublish returns the oldest record still in status NEW, ordered
	// by global position, or nil when no NEW record exists.
	NextToPublish(ctx context.Context) (*Record, error)

	// MarkPublished transitions a NEW record to PUBLISHED. Any other
	// starting state fails with a StateTransitionError.
	MarkPublished(ctx context.Context, id uuid.UUID) error

	// MarkConsumed transitions a PUBLISHED record to CONSUMED. Any other
	// starting state fails with a StateTransitionError.
	MarkConsumed(ctx context.Context, id uuid.UUID) error

	// ReadStream returns an iterator over the records of one stream,
	// ascending by position. An unknown stream yields an empty iterator.
	ReadStream(ctx context.Context, streamName string) (*Iterator[*Record], error)

	// MessagesByType returns all records of the given message type, most
	// recently created first.
	MessagesByType(ctx context.Context, typeName string) ([]*Record, error)

	// MostRecentByType returns the most recently created record of the
	// given message type, or nil when none exists.
	MostRecentByType(ctx context.Context, typeName string) (*Record, error)

	// Close releases resources held by the store. Close is idempotent.
	Close() error
}
