package eventflow

import (
	"context"
	"fmt"
	"reflect"
)

// Replayer reconstructs aggregate state by reading an aggregate's full event
// stream in position order and folding each event through the projection
// registry. No snapshotting is performed: every reconstruction replays the
// stream from the beginning.
type Replayer struct {
	store       MessageStore
	registry    *Registry
	projections *Projections
}

// NewReplayer creates a replayer over the given store, type registry and
// projection registry.
func NewReplayer(store MessageStore, registry *Registry, projections *Projections) *Replayer {
	return &Replayer{
		store:       store,
		registry:    registry,
		projections: projections,
	}
}

// ReplayAggregate rebuilds the aggregate of type A addressed by id.
//
// It reads the stream "<root>-<id>" ascending by position, deserializes each
// stored record into its typed event through the registry, and applies every
// projection registered for (A, event type) in registration order. The
// returned aggregate is exclusively owned by the caller.
//
// A stored event type with no projection registered for A fails the replay
// with an UnknownProjectionError rather than being silently skipped. A stream
// with no records fails with ErrStreamNotFound.
func ReplayAggregate[A any](ctx context.Context, rp *Replayer, id string) (*A, error) {
	aggName := typeNameFor(reflect.TypeFor[A]())

	entry, err := rp.registry.aggregateEntry(aggName)
	if err != nil {
		return nil, err
	}

	stream := eventStreamName(entry.streamRoot, id)

	iter, err := rp.store.ReadStream(ctx, stream)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", stream, err)
	}

	agg := new(A)
	applied := 0

	for iter.Next(ctx) {
		rec := iter.Value()

		event, err := rp.registry.Materialize(rec.Message)
		if err != nil {
			return nil, fmt.Errorf("replay %s at position %d: %w", stream, rec.Position, err)
		}

		if n := rp.projections.apply(aggName, agg, rec.Type, event); n == 0 {
			return nil, &UnknownProjectionError{
				AggregateType: aggName,
				EventType:     rec.Type,
			}
		}
		applied++

		if base, ok := any(agg).(interface{ setVersion(uint64) }); ok {
			base.setVersion(rec.Position)
		}
	}

	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("replay %s: %w", stream, err)
	}

	if applied == 0 {
		return nil, fmt.Errorf("replay %s: %w", stream, ErrStreamNotFound)
	}
	return agg, nil
}
