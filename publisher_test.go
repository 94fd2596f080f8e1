package eventflow_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/streamhaven/eventflow"
	"github.com/streamhaven/eventflow/fixtures"
	"github.com/streamhaven/eventflow/messagestore/memory"
)

func testPublisherConfig() eventflow.PublisherConfig {
	return eventflow.PublisherConfig{
		PollInterval:    time.Millisecond,
		MaxPollInterval: 5 * time.Millisecond,
		ErrorBuffer:     8,
	}
}

func TestPublisher_PublishesInAppendOrder(t *testing.T) {
	registry := fixtures.NewRegistry()
	store := memory.NewStore()
	defer store.Close()

	seedUser(t, registry, store, fixtures.NewUser(registry).
		WithID("u1").
		WithEmailChange("new@example.com"))

	var mu sync.Mutex
	var seen []string
	record := func(ctx context.Context) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, eventflow.MessageTypeFromContext(ctx))
	}

	group := eventflow.NewHandlerGroup(
		eventflow.OnEvent(func(ctx context.Context, ev fixtures.UserRegistered) error {
			record(ctx)
			return nil
		}),
		eventflow.OnEvent(func(ctx context.Context, ev fixtures.UserEmailChanged) error {
			record(ctx)
			return nil
		}),
	)

	d := eventflow.NewDispatcher(registry, group, eventflow.NopUnitOfWork{})
	pub := eventflow.NewPublisher(store, d, eventflow.WithPublisherConfig(testPublisherConfig()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		pub.Run(ctx)
	}()

	waitFor(t, time.Second, func() bool {
		rec, err := store.NextToPublish(context.Background())
		return err == nil && rec == nil
	})
	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 2 || seen[0] != "UserRegistered" || seen[1] != "UserEmailChanged" {
		t.Errorf("expected global append order, got %v", seen)
	}

	recs, err := store.MessagesByType(context.Background(), "UserRegistered")
	if err != nil {
		t.Fatalf("read records: %v", err)
	}
	if len(recs) != 1 || recs[0].Status != eventflow.StatusPublished {
		t.Errorf("expected published record, got %+v", recs)
	}
}

func TestPublisher_HandlerFailureLeavesRecordNew(t *testing.T) {
	registry := fixtures.NewRegistry()
	store := memory.NewStore()
	defer store.Close()

	seedUser(t, registry, store, fixtures.NewUser(registry).WithID("u1"))

	boom := errors.New("boom")
	group := eventflow.NewHandlerGroup(
		eventflow.OnEvent(func(ctx context.Context, ev fixtures.UserRegistered) error {
			return boom
		}),
	)

	d := eventflow.NewDispatcher(registry, group, eventflow.NopUnitOfWork{})
	pub := eventflow.NewPublisher(store, d, eventflow.WithPublisherConfig(testPublisherConfig()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		pub.Run(ctx)
	}()

	select {
	case err := <-pub.Errors():
		if !errors.Is(err, boom) {
			t.Errorf("expected dispatch failure on error channel, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for publisher error")
	}
	cancel()
	<-done

	recs, err := store.MessagesByType(context.Background(), "UserRegistered")
	if err != nil {
		t.Fatalf("read records: %v", err)
	}
	if len(recs) != 1 || recs[0].Status != eventflow.StatusNew {
		t.Errorf("expected record to stay NEW for retry, got %+v", recs)
	}
}

func TestPublisher_StopsWhenStoreCloses(t *testing.T) {
	registry := fixtures.NewRegistry()
	store := memory.NewStore()
	store.Close()

	d := eventflow.NewDispatcher(registry, eventflow.NewHandlerGroup(), eventflow.NopUnitOfWork{})
	pub := eventflow.NewPublisher(store, d, eventflow.WithPublisherConfig(testPublisherConfig()))

	err := pub.Run(context.Background())
	if !errors.Is(err, eventflow.ErrStoreClosed) {
		t.Fatalf("expected ErrStoreClosed, got %v", err)
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
