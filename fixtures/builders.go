package fixtures

import (
	"context"
	"fmt"

	"github.com/streamhaven/eventflow"
)

// UserBuilder provides a fluent API for appending a user's event history to
// a store.
type UserBuilder struct {
	registry *eventflow.Registry
	id       string
	email    string
	name     string
	changes  []string
}

// NewUser creates a UserBuilder with sensible defaults.
func NewUser(registry *eventflow.Registry) *UserBuilder {
	return &UserBuilder{
		registry: registry,
		id:       "user-1",
		email:    "ada@example.com",
		name:     "Ada",
	}
}

// WithID sets the user identifier.
func (b *UserBuilder) WithID(id string) *UserBuilder {
	b.id = id
	return b
}

// WithEmail sets the registration email.
func (b *UserBuilder) WithEmail(email string) *UserBuilder {
	b.email = email
	return b
}

// WithName sets the registration name.
func (b *UserBuilder) WithName(name string) *UserBuilder {
	b.name = name
	return b
}

// WithEmailChange appends an email change after registration.
func (b *UserBuilder) WithEmailChange(email string) *UserBuilder {
	b.changes = append(b.changes, email)
	return b
}

// Seed appends the built event history to the store and returns the appended
// records.
func (b *UserBuilder) Seed(ctx context.Context, store eventflow.MessageStore) ([]*eventflow.Record, error) {
	events := []eventflow.Event{
		UserRegistered{UserID: b.id, Email: b.email, Name: b.name},
	}
	for _, email := range b.changes {
		events = append(events, UserEmailChanged{UserID: b.id, Email: email})
	}

	var records []*eventflow.Record
	for _, ev := range events {
		msg, err := b.registry.NewEventMessage(ev)
		if err != nil {
			return nil, fmt.Errorf("build message for %s: %w", ev.EventType(), err)
		}
		rec, err := store.Append(ctx, msg)
		if err != nil {
			return nil, fmt.Errorf("append %s: %w", ev.EventType(), err)
		}
		records = append(records, rec)
	}
	return records, nil
}
