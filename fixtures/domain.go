// Package fixtures provides a small sample domain used across the test
// suites: a User aggregate, its events, and a registration command.
package fixtures

import (
	"github.com/streamhaven/eventflow"
)

// User is an event-sourced aggregate with stream root "user".
type User struct {
	eventflow.AggregateRoot

	Email  string
	Name   string
	Active bool
}

// UserRegistered records a new user joining the domain.
type UserRegistered struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

func (e UserRegistered) EventType() string { return "UserRegistered" }
func (e UserRegistered) EntityID() string  { return e.UserID }

// UserEmailChanged records an email update on an existing user.
type UserEmailChanged struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

func (e UserEmailChanged) EventType() string { return "UserEmailChanged" }
func (e UserEmailChanged) EntityID() string  { return e.UserID }

// AuditNoted is an anonymous occurrence addressed to an explicit stream; it
// carries no identity of its own.
type AuditNoted struct {
	Note string `json:"note"`
}

func (e AuditNoted) EventType() string { return "AuditNoted" }

// RegisterUser is a command associated with the User aggregate.
type RegisterUser struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

func (c RegisterUser) CommandType() string { return "RegisterUser" }
func (c RegisterUser) EntityID() string    { return c.UserID }

// NewRegistry builds a registry with the fixture domain registered.
func NewRegistry() *eventflow.Registry {
	r := eventflow.NewRegistry("identity")
	eventflow.RegisterAggregate[User](r, "user")
	eventflow.RegisterEvent[UserRegistered](r, eventflow.WithAggregate[User]())
	eventflow.RegisterEvent[UserEmailChanged](r, eventflow.WithAggregate[User]())
	eventflow.RegisterEvent[AuditNoted](r, eventflow.WithStream("audit"))
	eventflow.RegisterCommand[RegisterUser](r, eventflow.WithAggregate[User]())
	return r
}

// NewProjections builds a projection registry folding the fixture events
// into User state.
func NewProjections() *eventflow.Projections {
	p := eventflow.NewProjections()
	eventflow.Project(p, func(u *User, ev UserRegistered) {
		u.Bind(ev.UserID)
		u.Email = ev.Email
		u.Name = ev.Name
		u.Active = true
	})
	eventflow.Project(p, func(u *User, ev UserEmailChanged) {
		u.Email = ev.Email
	})
	return p
}
