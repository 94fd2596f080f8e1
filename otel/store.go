package otel

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/streamhaven/eventflow"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// WithStoreTelemetry wraps a message store with spans and metrics on every
// operation.
func WithStoreTelemetry(next eventflow.MessageStore) eventflow.MessageStore {
	return &instrumentedStore{next: next}
}

type instrumentedStore struct {
	next eventflow.MessageStore
}

func (s *instrumentedStore) Append(ctx context.Context, msg eventflow.Message) (*eventflow.Record, error) {
	ctx, span := tracer.Start(ctx, "store.append",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			AttrMessageType.String(msg.Type),
			AttrStreamName.String(msg.StreamName),
		),
	)
	defer span.End()

	startTime := time.Now()
	rec, err := s.next.Append(ctx, msg)
	s.record(ctx, "append", startTime, span, err)

	if err == nil {
		StoreAppends.Add(ctx, 1, metric.WithAttributes(AttrMessageType.String(msg.Type)))
	}
	return rec, err
}

func (s *instrumentedStore) NextToPublish(ctx context.Context) (*eventflow.Record, error) {
	rec, err := s.next.NextToPublish(ctx)
	return rec, err
}

func (s *instrumentedStore) MarkPublished(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, "mark_published", eventflow.StatusPublished, id)
}

func (s *instrumentedStore) MarkConsumed(ctx context.Context, id uuid.UUID) error {
	return s.transition(ctx, "mark_consumed", eventflow.StatusConsumed, id)
}

func (s *instrumentedStore) transition(ctx context.Context, op string, to eventflow.Status, id uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "store."+op,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			AttrMessageID.String(id.String()),
			AttrStatus.String(string(to)),
		),
	)
	defer span.End()

	startTime := time.Now()
	var err error
	switch op {
	case "mark_published":
		err = s.next.MarkPublished(ctx, id)
	default:
		err = s.next.MarkConsumed(ctx, id)
	}
	s.record(ctx, op, startTime, span, err)

	if err == nil {
		StoreTransitions.Add(ctx, 1, metric.WithAttributes(AttrStatus.String(string(to))))
	}
	return err
}

func (s *instrumentedStore) ReadStream(ctx context.Context, streamName string) (*eventflow.Iterator[*eventflow.Record], error) {
	ctx, span := tracer.Start(ctx, "store.read_stream",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(AttrStreamName.String(streamName)),
	)
	defer span.End()

	startTime := time.Now()
	iter, err := s.next.ReadStream(ctx, streamName)
	s.record(ctx, "read_stream", startTime, span, err)
	return iter, err
}

func (s *instrumentedStore) MessagesByType(ctx context.Context, typeName string) ([]*eventflow.Record, error) {
	ctx, span := tracer.Start(ctx, "store.messages_by_type",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(AttrMessageType.String(typeName)),
	)
	defer span.End()

	startTime := time.Now()
	records, err := s.next.MessagesByType(ctx, typeName)
	s.record(ctx, "messages_by_type", startTime, span, err)
	return records, err
}

func (s *instrumentedStore) MostRecentByType(ctx context.Context, typeName string) (*eventflow.Record, error) {
	ctx, span := tracer.Start(ctx, "store.most_recent_by_type",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(AttrMessageType.String(typeName)),
	)
	defer span.End()

	startTime := time.Now()
	rec, err := s.next.MostRecentByType(ctx, typeName)
	s.record(ctx, "most_recent_by_type", startTime, span, err)
	return rec, err
}

func (s *instrumentedStore) Close() error {
	return s.next.Close()
}

func (s *instrumentedStore) record(ctx context.Context, op string, startTime time.Time, span trace.Span, err error) {
	StoreDuration.Record(ctx,
		float64(time.Since(startTime).Milliseconds()),
		metric.WithAttributes(AttrOperation.String(op)),
	)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		return
	}
	span.SetStatus(codes.Ok, "")
}
