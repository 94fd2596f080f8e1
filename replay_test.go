package eventflow_test

import (
	"context"
	"errors"
	"testing"

	"github.com/streamhaven/eventflow"
	"github.com/streamhaven/eventflow/fixtures"
	"github.com/streamhaven/eventflow/messagestore/memory"
)

func seedUser(t *testing.T, registry *eventflow.Registry, store eventflow.MessageStore, builder *fixtures.UserBuilder) []*eventflow.Record {
	t.Helper()
	records, err := builder.Seed(context.Background(), store)
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	return records
}

func TestReplayAggregate(t *testing.T) {
	registry := fixtures.NewRegistry()
	projections := fixtures.NewProjections()
	store := memory.NewStore()
	defer store.Close()

	seedUser(t, registry, store, fixtures.NewUser(registry).
		WithID("u1").
		WithEmail("ada@example.com").
		WithEmailChange("countess@example.com"))

	rp := eventflow.NewReplayer(store, registry, projections)
	user, err := eventflow.ReplayAggregate[fixtures.User](context.Background(), rp, "u1")
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}

	if user.EntityID() != "u1" {
		t.Errorf("expected identity 'u1', got %q", user.EntityID())
	}
	if user.Email != "countess@example.com" {
		t.Errorf("expected latest email, got %q", user.Email)
	}
	if !user.Active {
		t.Error("expected user to be active after registration")
	}
	if user.Version() != 2 {
		t.Errorf("expected version 2 after two events, got %d", user.Version())
	}
}

func TestReplayAggregate_SingleEventMatchesDirectProjection(t *testing.T) {
	registry := fixtures.NewRegistry()
	projections := fixtures.NewProjections()
	store := memory.NewStore()
	defer store.Close()

	ev := fixtures.UserRegistered{UserID: "u2", Email: "g@example.com", Name: "Grace"}
	seedUser(t, registry, store, fixtures.NewUser(registry).
		WithID(ev.UserID).
		WithEmail(ev.Email).
		WithName(ev.Name))

	rp := eventflow.NewReplayer(store, registry, projections)
	replayed, err := eventflow.ReplayAggregate[fixtures.User](context.Background(), rp, "u2")
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}

	direct := &fixtures.User{}
	direct.Bind(ev.UserID)
	direct.Email = ev.Email
	direct.Name = ev.Name
	direct.Active = true

	if replayed.Email != direct.Email || replayed.Name != direct.Name || replayed.Active != direct.Active {
		t.Errorf("replayed state %+v differs from direct projection %+v", replayed, direct)
	}
	if !eventflow.SameIdentity(replayed, direct) {
		t.Error("expected replayed aggregate to equal directly projected one")
	}
}

func TestReplayAggregate_IndependentReplaysAreEqual(t *testing.T) {
	registry := fixtures.NewRegistry()
	projections := fixtures.NewProjections()
	store := memory.NewStore()
	defer store.Close()

	seedUser(t, registry, store, fixtures.NewUser(registry).WithID("u3"))

	rp := eventflow.NewReplayer(store, registry, projections)

	first, err := eventflow.ReplayAggregate[fixtures.User](context.Background(), rp, "u3")
	if err != nil {
		t.Fatalf("first replay failed: %v", err)
	}
	second, err := eventflow.ReplayAggregate[fixtures.User](context.Background(), rp, "u3")
	if err != nil {
		t.Fatalf("second replay failed: %v", err)
	}

	if first == second {
		t.Fatal("expected independent instances")
	}
	if !eventflow.SameIdentity(first, second) {
		t.Error("expected structurally equal identities")
	}
}

func TestReplayAggregate_UnknownProjection(t *testing.T) {
	registry := fixtures.NewRegistry()
	store := memory.NewStore()
	defer store.Close()

	seedUser(t, registry, store, fixtures.NewUser(registry).WithID("u4"))

	// A projection registry without the UserRegistered fold.
	projections := eventflow.NewProjections()
	eventflow.Project(projections, func(u *fixtures.User, ev fixtures.UserEmailChanged) {
		u.Email = ev.Email
	})

	rp := eventflow.NewReplayer(store, registry, projections)
	_, err := eventflow.ReplayAggregate[fixtures.User](context.Background(), rp, "u4")

	var unknown *eventflow.UnknownProjectionError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownProjectionError, got %v", err)
	}
	if unknown.EventType != "UserRegistered" {
		t.Errorf("expected error to name 'UserRegistered', got %q", unknown.EventType)
	}
}

func TestReplayAggregate_EmptyStream(t *testing.T) {
	registry := fixtures.NewRegistry()
	projections := fixtures.NewProjections()
	store := memory.NewStore()
	defer store.Close()

	rp := eventflow.NewReplayer(store, registry, projections)
	_, err := eventflow.ReplayAggregate[fixtures.User](context.Background(), rp, "ghost")

	if !errors.Is(err, eventflow.ErrStreamNotFound) {
		t.Fatalf("expected ErrStreamNotFound, got %v", err)
	}
}
