package eventflow

import (
	"errors"
	"testing"
)

func TestNewEventByName(t *testing.T) {
	r := newTestRegistry()

	ev, err := r.NewEventByName("OrderPlaced")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, ok := ev.(orderPlaced); !ok {
		t.Fatalf("expected orderPlaced, got %T", ev)
	}
}

func TestNewEventByName_Unregistered(t *testing.T) {
	r := newTestRegistry()

	if _, err := r.NewEventByName("Nope"); err == nil {
		t.Fatal("expected error for unregistered event")
	}
}

func TestNewCommandByName(t *testing.T) {
	r := newTestRegistry()

	cmd, err := r.NewCommandByName("PlaceOrder")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, ok := cmd.(placeOrder); !ok {
		t.Fatalf("expected placeOrder, got %T", cmd)
	}
}

func TestMaterialize(t *testing.T) {
	r := newTestRegistry()

	msg, err := r.NewEventMessage(orderPlaced{OrderID: "o1", Total: 42})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	payload, err := r.Materialize(msg)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	ev, ok := payload.(orderPlaced)
	if !ok {
		t.Fatalf("expected orderPlaced, got %T", payload)
	}
	if ev.OrderID != "o1" || ev.Total != 42 {
		t.Errorf("payload not preserved: %+v", ev)
	}
}

func TestMaterialize_CommandKind(t *testing.T) {
	r := newTestRegistry()

	msg, err := r.NewCommandMessage(placeOrder{OrderID: "o2", Total: 7})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	payload, err := r.Materialize(msg)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, ok := payload.(placeOrder); !ok {
		t.Fatalf("expected placeOrder, got %T", payload)
	}
}

func TestRegisterEvent_Duplicate(t *testing.T) {
	r := newTestRegistry()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate registration")
		}
	}()
	RegisterEvent[orderPlaced](r, WithAggregate[order]())
}

type bareThing struct {
	Label string
}

func TestRegisterAggregate_MissingIdentifier(t *testing.T) {
	r := NewRegistry("commerce")

	defer func() {
		rec := recover()
		if rec == nil {
			t.Fatal("expected panic for aggregate without identifier")
		}
		err, ok := rec.(error)
		if !ok {
			t.Fatalf("expected error panic, got %T", rec)
		}
		var missing *MissingIdentifierError
		if !errors.As(err, &missing) {
			t.Fatalf("expected MissingIdentifierError, got %v", err)
		}
	}()
	RegisterAggregate[bareThing](r, "bare")
}

func TestTypeName(t *testing.T) {
	if got := TypeName(orderPlaced{}); got != "eventflow.orderPlaced" {
		t.Errorf("unexpected type name %q", got)
	}
	if got := TypeName(&orderPlaced{}); got != "eventflow.orderPlaced" {
		t.Errorf("expected pointer to resolve to element type, got %q", got)
	}
}
