package eventflow

import (
	"hash/fnv"
	"reflect"
	"time"
)

var now = time.Now

// Aggregate is a consistency boundary whose state is derived entirely from
// replaying its event stream. Concrete aggregate types embed AggregateRoot
// and register projections that fold events into their state.
type Aggregate interface {
	// EntityID returns the unique identifier of the aggregate.
	EntityID() string
}

// AggregateRoot is the base every event-sourced aggregate embeds. It holds
// the identity and the replayed version.
type AggregateRoot struct {
	id string
	v  uint64
}

// EntityID implements the Aggregate interface.
func (a *AggregateRoot) EntityID() string {
	return a.id
}

// Bind assigns the aggregate identity. The identity is set once by the first
// applied event and never changes; later Bind calls are ignored.
func (a *AggregateRoot) Bind(id string) {
	if a.id == "" {
		a.id = id
	}
}

// Version returns the stream position of the last applied event.
func (a *AggregateRoot) Version() uint64 {
	return a.v
}

func (a *AggregateRoot) setVersion(v uint64) {
	a.v = v
}

// SameIdentity reports whether two aggregates are equal. Equality is defined
// solely on concrete type and identifier value: two instances rebuilt
// independently from the same stream compare equal regardless of any other
// field values.
func SameIdentity(a, b Aggregate) bool {
	if a == nil || b == nil {
		return false
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	return a.EntityID() != "" && a.EntityID() == b.EntityID()
}

// IdentityHash hashes an aggregate on type and identifier, consistent with
// SameIdentity.
func IdentityHash(a Aggregate) uint64 {
	h := fnv.New64a()
	h.Write([]byte(TypeName(a)))
	h.Write([]byte{0})
	h.Write([]byte(a.EntityID()))
	return h.Sum64()
}
