package eventflow

import (
	"fmt"
	"reflect"
	"sync"
)

type projectionEntry struct {
	eventType string
	apply     func(agg any, event any)
}

// Projections is the per-aggregate-type projection registry. For each
// aggregate type it maps event type names to the ordered list of functions
// that fold that event into aggregate state.
//
// Registries are isolated per aggregate type: projections registered for one
// aggregate never leak into another. Fan-out over multiple projections for
// the same event type is deterministic and follows registration order.
type Projections struct {
	mu      sync.RWMutex
	entries map[string]map[string][]projectionEntry
}

// NewProjections creates an empty projection registry.
func NewProjections() *Projections {
	return &Projections{
		entries: make(map[string]map[string][]projectionEntry),
	}
}

// Project registers fn as a projection folding events of type E into
// aggregates of type A. Registration happens once at startup; a nil fn
// panics.
//
// Example:
//
//	Project(projections, func(u *User, ev UserRegistered) {
//	    u.Bind(ev.UserID)
//	    u.Email = ev.Email
//	})
func Project[A any, E Event](p *Projections, fn func(*A, E)) {
	if fn == nil {
		panic("cannot register nil projection")
	}

	var zero E
	aggName := typeNameFor(reflect.TypeFor[A]())
	eventName := zero.EventType()

	p.mu.Lock()
	defer p.mu.Unlock()

	byEvent, ok := p.entries[aggName]
	if !ok {
		byEvent = make(map[string][]projectionEntry)
		p.entries[aggName] = byEvent
	}

	byEvent[eventName] = append(byEvent[eventName], projectionEntry{
		eventType: eventName,
		apply: func(agg any, event any) {
			a, ok := agg.(*A)
			if !ok {
				panic(fmt.Sprintf("projection for %s invoked with aggregate %T", aggName, agg))
			}
			e, ok := event.(E)
			if !ok {
				panic(fmt.Sprintf("projection for %s invoked with event %T", eventName, event))
			}
			fn(a, e)
		},
	})
}

// apply invokes every projection registered for the aggregate and event type,
// in registration order, and returns how many ran.
func (p *Projections) apply(aggName string, agg any, eventName string, event any) int {
	p.mu.RLock()
	fns := p.entries[aggName][eventName]
	p.mu.RUnlock()

	for _, entry := range fns {
		entry.apply(agg, event)
	}
	return len(fns)
}

// Registered reports whether the aggregate type has at least one projection
// for the event type.
func (p *Projections) Registered(aggName, eventName string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries[aggName][eventName]) > 0
}
