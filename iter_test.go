package eventflow

import (
	"context"
	"errors"
	"io"
	"testing"
)

func TestSliceIterator(t *testing.T) {
	iter := NewSliceIterator([]int{1, 2, 3})

	got, err := iter.All(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Errorf("unexpected items: %v", got)
	}
}

func TestSliceIterator_Empty(t *testing.T) {
	iter := NewSliceIterator([]int(nil))

	if iter.Next(context.Background()) {
		t.Error("expected no items")
	}
	if err := iter.Err(); err != nil {
		t.Errorf("expected nil error after exhaustion, got %v", err)
	}
}

func TestIterator_ErrorStopsIteration(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	iter := NewIterator(func(ctx context.Context) (int, error) {
		calls++
		if calls > 2 {
			return 0, boom
		}
		return calls, nil
	})

	ctx := context.Background()
	var items []int
	for iter.Next(ctx) {
		items = append(items, iter.Value())
	}

	if len(items) != 2 {
		t.Errorf("expected 2 items before failure, got %v", items)
	}
	if !errors.Is(iter.Err(), boom) {
		t.Errorf("expected boom, got %v", iter.Err())
	}
	if iter.Next(ctx) {
		t.Error("expected iterator to stay stopped after error")
	}
}

func TestIterator_EOFIsNotAnError(t *testing.T) {
	iter := NewIterator(func(ctx context.Context) (int, error) {
		return 0, io.EOF
	})

	if iter.Next(context.Background()) {
		t.Error("expected immediate exhaustion")
	}
	if err := iter.Err(); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
}

func TestIterator_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	iter := NewSliceIterator([]int{1, 2, 3})
	if iter.Next(ctx) {
		t.Error("expected no progress with canceled context")
	}
	if !errors.Is(iter.Err(), context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", iter.Err())
	}
}
