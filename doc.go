// Package eventflow is an event-sourcing and message-dispatch toolkit.
//
// Domain events and commands are wrapped in immutable, stream-addressed
// messages and appended to a MessageStore, an append-only log with a
// NEW → PUBLISHED → CONSUMED lifecycle per record. A Publisher polls the
// store for the oldest NEW record and hands it to a Dispatcher, which
// invokes the matching handlers inside one unit-of-work scope. Aggregate
// state is never stored directly: a Replayer rebuilds it on demand by
// folding the aggregate's event stream through registered projections.
package eventflow
