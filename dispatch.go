package eventflow

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Handler processes one typed event or command payload.
type Handler interface {
	// Handle processes the given payload within the provided context.
	Handle(ctx context.Context, payload any) error
}

// NewHandlerFunc creates a Handler from a plain function. The function
// receives every payload it is invoked with; there is no type filtering.
// Used by middleware that wraps other handlers.
func NewHandlerFunc(fn func(ctx context.Context, payload any) error) Handler {
	return handlerFunc(fn)
}

type handlerFunc func(ctx context.Context, payload any) error

func (h handlerFunc) Handle(ctx context.Context, payload any) error {
	return h(ctx, payload)
}

// typedHandler is a strongly typed handler for a specific payload type T.
type typedHandler[T any] struct {
	name string
	fn   func(ctx context.Context, payload T) error
}

// MessageName returns the declared type name of T, used by HandlerGroup for
// routing.
func (h typedHandler[T]) MessageName() string {
	return h.name
}

// Handle processes the payload if it matches the type T.
// Returns ErrSkippedMessage if the payload is of the wrong type.
func (h typedHandler[T]) Handle(ctx context.Context, payload any) error {
	v, ok := payload.(T)
	if !ok {
		return &ErrSkippedMessage{Type: fmt.Sprintf("%T", payload)}
	}
	return h.fn(ctx, v)
}

// OnEvent creates a strongly-typed handler for a specific event type.
//
// Example:
//
//	handler := OnEvent(func(ctx context.Context, ev UserRegistered) error {
//	    return mailer.SendWelcome(ctx, ev.Email)
//	})
func OnEvent[T Event](fn func(ctx context.Context, ev T) error) Handler {
	var zero T
	return typedHandler[T]{name: zero.EventType(), fn: fn}
}

// OnCommand creates a strongly-typed handler for a specific command type.
func OnCommand[T Command](fn func(ctx context.Context, cmd T) error) Handler {
	var zero T
	return typedHandler[T]{name: zero.CommandType(), fn: fn}
}

// HandlerGroup routes messages to the handlers registered for their type.
// Multiple handlers may be registered for one type; fan-out is deterministic
// and follows registration order.
type HandlerGroup struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

// NewHandlerGroup creates a group from typed handlers built with OnEvent or
// OnCommand. Panics when a handler does not expose its message name.
func NewHandlerGroup(handlers ...Handler) *HandlerGroup {
	g := &HandlerGroup{
		handlers: make(map[string][]Handler, len(handlers)),
	}
	for _, h := range handlers {
		g.Add(h)
	}
	return g
}

// Add registers one more handler with the group.
func (g *HandlerGroup) Add(h Handler) {
	named, ok := h.(interface{ MessageName() string })
	if !ok {
		panic(fmt.Errorf("handler %T does not have a function `MessageName()`", h))
	}

	name := named.MessageName()

	g.mu.Lock()
	defer g.mu.Unlock()
	g.handlers[name] = append(g.handlers[name], h)
}

func (g *HandlerGroup) handlersFor(name string) []Handler {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.handlers[name]
}

// StreamFilter returns a sorted list of all message type names handled by
// this group.
func (g *HandlerGroup) StreamFilter() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]string, 0, len(g.handlers))
	for name := range g.handlers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Dispatcher hands stored messages to their matching handlers inside a
// unit-of-work scope.
//
// On successful return of every handler the scope commits as one atomic
// unit. When a handler fails the scope is rolled back, the error propagates
// to the caller, and the stored message's status is left untouched so a later
// publish cycle can retry it.
//
// When a scope is already active in the calling context the dispatcher joins
// it instead of opening a nested one; committing stays the outer owner's
// responsibility. WithRequireNewScope forces a fresh scope regardless.
type Dispatcher struct {
	registry *Registry
	group    *HandlerGroup
	uow      UnitOfWork

	requireNewScope bool
}

// DispatcherOption customizes dispatcher behavior.
type DispatcherOption func(*Dispatcher)

// WithRequireNewScope makes the dispatcher open a fresh scope even when one
// is already active in the calling context.
func WithRequireNewScope() DispatcherOption {
	return func(d *Dispatcher) { d.requireNewScope = true }
}

// NewDispatcher creates a dispatcher over the given registry, handler group
// and unit-of-work provider.
func NewDispatcher(registry *Registry, group *HandlerGroup, uow UnitOfWork, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		group:    group,
		uow:      uow,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch decodes the message payload into its typed event or command and
// invokes every matching handler inside one unit-of-work scope.
//
// A message type with no registered handler returns an ErrSkippedMessage.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) error {
	handlers := d.group.handlersFor(msg.Type)
	if len(handlers) == 0 {
		return &ErrSkippedMessage{Type: msg.Type}
	}

	payload, err := d.registry.Materialize(msg)
	if err != nil {
		return fmt.Errorf("dispatch %s: %w", msg.Type, err)
	}

	ctx = WithMessage(ctx, &msg)

	if _, active := ScopeFromContext(ctx); active && !d.requireNewScope {
		// Join the ambient scope; the outer owner commits or rolls back.
		return d.invoke(ctx, handlers, payload)
	}

	scope, err := d.uow.Begin(ctx)
	if err != nil {
		return fmt.Errorf("dispatch %s: begin scope: %w", msg.Type, err)
	}
	ctx = WithScope(ctx, scope)

	if err := d.invoke(ctx, handlers, payload); err != nil {
		if rbErr := scope.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback scope: %w", rbErr))
		}
		return err
	}

	if err := scope.Commit(); err != nil {
		return fmt.Errorf("dispatch %s: commit scope: %w", msg.Type, err)
	}
	return nil
}

func (d *Dispatcher) invoke(ctx context.Context, handlers []Handler, payload any) error {
	for _, h := range handlers {
		if err := h.Handle(ctx, payload); err != nil {
			return err
		}
	}
	return nil
}
