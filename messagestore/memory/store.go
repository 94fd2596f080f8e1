// Package memory provides an in-memory MessageStore, the reference
// implementation used in tests and single-process setups.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/streamhaven/eventflow"
)

// Store is a mutex-guarded in-memory message log. Records are partitioned by
// stream name and kept in one global slice ordered by a monotonic sequence
// counter assigned at append time.
type Store struct {
	mu        sync.RWMutex
	closed    bool
	byID      map[uuid.UUID]*eventflow.Record
	streams   map[string][]*eventflow.Record
	global    []*eventflow.Record
	globalSeq uint64
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		byID:    make(map[uuid.UUID]*eventflow.Record),
		streams: make(map[string][]*eventflow.Record),
	}
}

// Append implements the MessageStore interface. Position and GlobalPosition
// are assigned under the store lock, so both sequences stay gapless and
// monotonic.
func (s *Store) Append(ctx context.Context, msg eventflow.Message) (*eventflow.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, eventflow.ErrStoreClosed
	}

	if _, exists := s.byID[msg.MessageID]; exists {
		return nil, &eventflow.DuplicateIdentifierError{MessageID: msg.MessageID}
	}

	currentVersion := uint64(len(s.streams[msg.StreamName]))
	if msg.ExpectedVersion != nil && *msg.ExpectedVersion != currentVersion {
		return nil, &eventflow.StreamRevisionConflictError{
			Stream:   msg.StreamName,
			Expected: *msg.ExpectedVersion,
			Actual:   currentVersion,
		}
	}

	s.globalSeq++
	msg.Position = currentVersion + 1
	msg.GlobalPosition = s.globalSeq

	created := time.Now().UTC()
	rec := &eventflow.Record{
		Message:   msg,
		Status:    eventflow.StatusNew,
		Version:   1,
		CreatedAt: created,
		UpdatedAt: created,
	}

	s.byID[msg.MessageID] = rec
	s.streams[msg.StreamName] = append(s.streams[msg.StreamName], rec)
	s.global = append(s.global, rec)

	return clone(rec), nil
}

// NextToPublish implements the MessageStore interface. Ties in creation time
// are broken by insertion order because the scan follows the global sequence.
func (s *Store) NextToPublish(ctx context.Context) (*eventflow.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, eventflow.ErrStoreClosed
	}

	for _, rec := range s.global {
		if rec.Status == eventflow.StatusNew {
			return clone(rec), nil
		}
	}
	return nil, nil
}

// MarkPublished implements the MessageStore interface.
func (s *Store) MarkPublished(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id, eventflow.StatusPublished)
}

// MarkConsumed implements the MessageStore interface.
func (s *Store) MarkConsumed(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, id, eventflow.StatusConsumed)
}

// transition advances a record's status by exactly one step under the store
// lock, so concurrent callers racing on the same record see one winner.
func (s *Store) transition(ctx context.Context, id uuid.UUID, next eventflow.Status) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return eventflow.ErrStoreClosed
	}

	rec, ok := s.byID[id]
	if !ok {
		return eventflow.ErrMessageNotFound
	}

	if !rec.Status.CanAdvanceTo(next) {
		return &eventflow.StateTransitionError{
			MessageID: id,
			From:      rec.Status,
			To:        next,
		}
	}

	rec.Status = next
	rec.Version++
	rec.UpdatedAt = time.Now().UTC()
	return nil
}

// ReadStream implements the MessageStore interface. An unknown stream yields
// an empty iterator.
func (s *Store) ReadStream(ctx context.Context, streamName string) (*eventflow.Iterator[*eventflow.Record], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, eventflow.ErrStoreClosed
	}

	records := s.streams[streamName]
	snapshot := make([]*eventflow.Record, len(records))
	for i, rec := range records {
		snapshot[i] = clone(rec)
	}
	return eventflow.NewSliceIterator(snapshot), nil
}

// MessagesByType implements the MessageStore interface.
func (s *Store) MessagesByType(ctx context.Context, typeName string) ([]*eventflow.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, eventflow.ErrStoreClosed
	}

	var results []*eventflow.Record
	for i := len(s.global) - 1; i >= 0; i-- {
		if s.global[i].Type == typeName {
			results = append(results, clone(s.global[i]))
		}
	}
	return results, nil
}

// MostRecentByType implements the MessageStore interface.
func (s *Store) MostRecentByType(ctx context.Context, typeName string) (*eventflow.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, eventflow.ErrStoreClosed
	}

	for i := len(s.global) - 1; i >= 0; i-- {
		if s.global[i].Type == typeName {
			return clone(s.global[i]), nil
		}
	}
	return nil, nil
}

// Close implements the MessageStore interface. Close is idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// clone copies a record so callers never share the store-owned instance.
func clone(rec *eventflow.Record) *eventflow.Record {
	c := *rec
	return &c
}
