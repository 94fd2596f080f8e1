package eventflow

import (
	"fmt"
	"reflect"
	"sync"
)

// TypeName returns the qualified type name used to address events, commands
// and aggregates in the registry and the message store.
func TypeName(v any) string {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

func typeNameFor(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.String()
}

type aggregateEntry struct {
	name       string
	streamRoot string
	typ        reflect.Type
}

type messageEntry struct {
	name          string
	kind          Kind
	typ           reflect.Type
	streamRoot    string
	aggregate     string
	schemaVersion int
}

// Registry is the central type registry owned by the runtime. It maps
// qualified type names to concrete event, command and aggregate types, and
// records the stream association declared for each message type at
// registration time.
//
// Registration happens once during startup; duplicate or invalid
// registrations panic, matching the programmer-error contract of the rest of
// the package.
type Registry struct {
	domain string

	mu         sync.RWMutex
	aggregates map[string]*aggregateEntry
	events     map[string]*messageEntry
	commands   map[string]*messageEntry
}

// NewRegistry creates a registry for the named domain. The domain name is
// stamped as the owner on every message built through this registry.
func NewRegistry(domain string) *Registry {
	return &Registry{
		domain:     domain,
		aggregates: make(map[string]*aggregateEntry),
		events:     make(map[string]*messageEntry),
		commands:   make(map[string]*messageEntry),
	}
}

// Domain returns the domain name this registry was created for.
func (r *Registry) Domain() string {
	return r.domain
}

// RegisterAggregate registers an aggregate type under the given stream root.
//
// The blank aggregate value must declare its identity by implementing
// Aggregate; a type without one is a definition error and panics with a
// MissingIdentifierError.
//
// Example:
//
//	RegisterAggregate[User](registry, "user")
func RegisterAggregate[A any](r *Registry, streamRoot string) {
	typ := reflect.TypeFor[A]()
	name := typeNameFor(typ)

	if _, ok := any(new(A)).(Aggregate); !ok {
		panic(&MissingIdentifierError{AggregateType: name})
	}
	if streamRoot == "" {
		panic(fmt.Sprintf("aggregate %s registered with empty stream root", name))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.aggregates[name]; exists {
		panic(fmt.Sprintf("aggregate already registered: %s", name))
	}

	r.aggregates[name] = &aggregateEntry{
		name:       name,
		streamRoot: streamRoot,
		typ:        typ,
	}
}

// AssociationOption declares the stream association of an event or command
// type at registration time.
type AssociationOption func(*messageEntry)

// WithStream associates the type with an explicit stream root.
func WithStream(root string) AssociationOption {
	return func(e *messageEntry) { e.streamRoot = root }
}

// WithAggregate associates the type with a registered aggregate type; the
// aggregate's stream root is resolved when messages are built.
func WithAggregate[A any]() AssociationOption {
	name := typeNameFor(reflect.TypeFor[A]())
	return func(e *messageEntry) { e.aggregate = name }
}

// WithSchemaVersion overrides the schema version stamped on message metadata.
// The default is 1.
func WithSchemaVersion(v int) AssociationOption {
	return func(e *messageEntry) { e.schemaVersion = v }
}

// RegisterEvent registers an event type under its EventType name, recording
// its declared association. The EventType of a type must be constant; it is
// read off the blank value. Panics on duplicate registration.
//
// Example:
//
//	RegisterEvent[UserRegistered](registry, WithAggregate[User]())
func RegisterEvent[E Event](r *Registry, opts ...AssociationOption) {
	var zero E
	registerMessage[E](r, zero.EventType(), KindEvent, opts)
}

// RegisterCommand registers a command type under its CommandType name,
// recording its declared association. Panics on duplicate registration.
func RegisterCommand[C Command](r *Registry, opts ...AssociationOption) {
	var zero C
	registerMessage[C](r, zero.CommandType(), KindCommand, opts)
}

func registerMessage[T any](r *Registry, name string, kind Kind, opts []AssociationOption) {
	if name == "" {
		panic(fmt.Sprintf("%s type %s reports an empty type name", kind, typeNameFor(reflect.TypeFor[T]())))
	}
	entry := &messageEntry{
		name:          name,
		kind:          kind,
		typ:           reflect.TypeFor[T](),
		schemaVersion: 1,
	}
	for _, opt := range opts {
		opt(entry)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	table := r.events
	if kind == KindCommand {
		table = r.commands
	}
	if _, exists := table[entry.name]; exists {
		panic(fmt.Sprintf("%s already registered: %s", kind, entry.name))
	}
	table[entry.name] = entry
}

// NewEventByName creates a blank instance of a registered event type.
func (r *Registry) NewEventByName(name string) (Event, error) {
	r.mu.RLock()
	entry, ok := r.events[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("event not registered: %s", name)
	}
	return reflect.New(entry.typ).Elem().Interface().(Event), nil
}

// NewCommandByName creates a blank instance of a registered command type.
func (r *Registry) NewCommandByName(name string) (Command, error) {
	r.mu.RLock()
	entry, ok := r.commands[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("command not registered: %s", name)
	}
	return reflect.New(entry.typ).Elem().Interface().(Command), nil
}

// Materialize deserializes a message payload into a typed event or command
// instance, resolved through the registered concrete type for the message's
// type name.
func (r *Registry) Materialize(msg Message) (any, error) {
	r.mu.RLock()
	table := r.events
	if msg.Metadata.Kind == KindCommand {
		table = r.commands
	}
	entry, ok := table[msg.Type]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%s not registered: %s", msg.Metadata.Kind, msg.Type)
	}
	return r.materializeEntry(entry, msg.Data)
}

func (r *Registry) materializeEntry(entry *messageEntry, data []byte) (any, error) {
	ptr := reflect.New(entry.typ)
	if len(data) > 0 {
		if err := unmarshalPayload(data, ptr.Interface()); err != nil {
			return nil, fmt.Errorf("deserialize %s: %w", entry.name, err)
		}
	}
	return ptr.Elem().Interface(), nil
}

func (r *Registry) eventEntry(name string) (*messageEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.events[name]
	if !ok {
		return nil, &AssociationError{TypeName: name}
	}
	return entry, nil
}

func (r *Registry) commandEntry(name string) (*messageEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.commands[name]
	if !ok {
		return nil, &AssociationError{TypeName: name}
	}
	return entry, nil
}

func (r *Registry) aggregateEntry(name string) (*aggregateEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.aggregates[name]
	if !ok {
		return nil, fmt.Errorf("aggregate not registered: %s", name)
	}
	return entry, nil
}
