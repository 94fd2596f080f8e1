package eventflow

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestWithMessage_RoundTrip(t *testing.T) {
	msg := Message{
		MessageID:      uuid.New(),
		StreamName:     "order-o1",
		Type:           "OrderPlaced",
		Metadata:       Metadata{Kind: KindEvent},
		Time:           time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC),
		Position:       3,
		GlobalPosition: 17,
	}

	ctx := WithMessage(context.Background(), &msg)

	if got := MessageIDFromContext(ctx); got != msg.MessageID {
		t.Errorf("message id: got %s", got)
	}
	if got := StreamNameFromContext(ctx); got != "order-o1" {
		t.Errorf("stream name: got %q", got)
	}
	if got := MessageTypeFromContext(ctx); got != "OrderPlaced" {
		t.Errorf("type: got %q", got)
	}
	if got := KindFromContext(ctx); got != KindEvent {
		t.Errorf("kind: got %q", got)
	}
	if got := PositionFromContext(ctx); got != 3 {
		t.Errorf("position: got %d", got)
	}
	if got := GlobalPositionFromContext(ctx); got != 17 {
		t.Errorf("global position: got %d", got)
	}
	if got := TimeFromContext(ctx); !got.Equal(msg.Time) {
		t.Errorf("time: got %s", got)
	}
}

func TestContextDefaults(t *testing.T) {
	ctx := context.Background()

	if MessageIDFromContext(ctx) != uuid.Nil {
		t.Error("expected uuid.Nil without a message")
	}
	if StreamNameFromContext(ctx) != "" || MessageTypeFromContext(ctx) != "" {
		t.Error("expected empty strings without a message")
	}
	if KindFromContext(ctx) != "" {
		t.Error("expected empty kind without a message")
	}
	if PositionFromContext(ctx) != 0 || GlobalPositionFromContext(ctx) != 0 {
		t.Error("expected zero positions without a message")
	}
	if !TimeFromContext(ctx).IsZero() {
		t.Error("expected zero time without a message")
	}
}

func TestScopeFromContext(t *testing.T) {
	if _, ok := ScopeFromContext(context.Background()); ok {
		t.Error("expected no ambient scope on a fresh context")
	}

	scope := nopScope{}
	ctx := WithScope(context.Background(), scope)

	got, ok := ScopeFromContext(ctx)
	if !ok {
		t.Fatal("expected scope to be present")
	}
	if got != Scope(scope) {
		t.Error("expected the attached scope back")
	}
}
