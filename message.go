package eventflow

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Kind distinguishes event messages from command messages.
type Kind string

const (
	KindEvent   Kind = "EVENT"
	KindCommand Kind = "COMMAND"
)

// Event is a domain event describing something that has happened.
type Event interface {
	EventType() string
}

// Command is a request to perform a domain action.
type Command interface {
	CommandType() string
}

// Identifiable is implemented by events and commands that carry the identity
// of the entity they address. Types without it are addressed anonymously.
type Identifiable interface {
	EntityID() string
}

// Metadata carries addressing metadata alongside the message payload.
type Metadata struct {
	Kind          Kind   `json:"kind"`
	Owner         string `json:"owner,omitempty"`
	SchemaVersion int    `json:"schema_version,omitempty"`
}

// Message is the immutable addressed unit persisted to the message store.
// Events are addressed to "<root>-<id>" streams, commands to
// "<root>:command-<id>" streams sharing the same root.
//
// Position and GlobalPosition are filled in by the store at append time;
// they are zero on a freshly constructed message.
type Message struct {
	MessageID      uuid.UUID       `json:"message_id"`
	StreamName     string          `json:"stream_name"`
	Type           string          `json:"type"`
	Data           json.RawMessage `json:"data"`
	Metadata       Metadata        `json:"metadata"`
	Time           time.Time       `json:"time"`
	Position       uint64          `json:"position"`
	GlobalPosition uint64          `json:"global_position"`

	// ExpectedVersion is an optional optimistic concurrency token checked
	// by the store on append.
	ExpectedVersion *uint64 `json:"expected_version,omitempty"`
}

// ExpectVersion returns a pointer suitable for Message.ExpectedVersion.
func ExpectVersion(v uint64) *uint64 {
	return &v
}

// EncodeMessage serializes a message for persistence or transport.
func EncodeMessage(m Message) ([]byte, error) {
	return json.Marshal(m)
}

// DecodeMessage reconstructs a message from its serialized form. Encoding a
// message and decoding the result round-trips stream name, type, data and
// metadata exactly.
func DecodeMessage(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, err
	}
	return m, nil
}

// NewEventMessage builds an event message from a domain event. The event
// type must have been registered with either an explicit stream or an
// aggregate association; otherwise an AssociationError is returned.
//
// The addressing identifier is the event's own EntityID when it implements
// Identifiable, or a freshly generated identifier for anonymous occurrences.
func (r *Registry) NewEventMessage(event Event) (Message, error) {
	name := event.EventType()

	entry, err := r.eventEntry(name)
	if err != nil {
		return Message{}, err
	}

	root, err := r.resolveStreamRoot(entry)
	if err != nil {
		return Message{}, err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return Message{}, err
	}

	return Message{
		MessageID:  uuid.New(),
		StreamName: eventStreamName(root, resolveIdentifier(event)),
		Type:       name,
		Data:       data,
		Metadata: Metadata{
			Kind:          KindEvent,
			Owner:         r.domain,
			SchemaVersion: entry.schemaVersion,
		},
		Time: now(),
	}, nil
}

// NewCommandMessage builds a command message from a domain command. It
// resolves the stream root exactly like NewEventMessage, but composes the
// command stream "<root>:command-<id>" so command streams stay distinct from
// event streams sharing the same root.
func (r *Registry) NewCommandMessage(cmd Command) (Message, error) {
	name := cmd.CommandType()

	entry, err := r.commandEntry(name)
	if err != nil {
		return Message{}, err
	}

	root, err := r.resolveStreamRoot(entry)
	if err != nil {
		return Message{}, err
	}

	data, err := json.Marshal(cmd)
	if err != nil {
		return Message{}, err
	}

	return Message{
		MessageID:  uuid.New(),
		StreamName: commandStreamName(root, resolveIdentifier(cmd)),
		Type:       name,
		Data:       data,
		Metadata: Metadata{
			Kind:          KindCommand,
			Owner:         r.domain,
			SchemaVersion: entry.schemaVersion,
		},
		Time: now(),
	}, nil
}

// NewAggregateEventMessage builds an event message addressed to a concrete
// aggregate instance, using the aggregate's registered stream root and its
// current identity.
func (r *Registry) NewAggregateEventMessage(agg Aggregate, event Event) (Message, error) {
	name := event.EventType()

	aggEntry, err := r.aggregateEntry(TypeName(agg))
	if err != nil {
		return Message{}, err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return Message{}, err
	}

	schemaVersion := 1
	if entry, err := r.eventEntry(name); err == nil {
		schemaVersion = entry.schemaVersion
	}

	return Message{
		MessageID:  uuid.New(),
		StreamName: eventStreamName(aggEntry.streamRoot, agg.EntityID()),
		Type:       name,
		Data:       data,
		Metadata: Metadata{
			Kind:          KindEvent,
			Owner:         r.domain,
			SchemaVersion: schemaVersion,
		},
		Time: now(),
	}, nil
}
