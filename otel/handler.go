package otel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/streamhaven/eventflow"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// WithHandlerTelemetry wraps a handler with a span and dispatch metrics per
// processed message.
func WithHandlerTelemetry(next eventflow.Handler) eventflow.Handler {
	return eventflow.NewHandlerFunc(func(ctx context.Context, payload any) error {
		msgType := eventflow.MessageTypeFromContext(ctx)

		attrs := []trace.SpanStartOption{
			trace.WithSpanKind(trace.SpanKindInternal),
			trace.WithAttributes(
				AttrMessageType.String(msgType),
				AttrMessageID.String(eventflow.MessageIDFromContext(ctx).String()),
				AttrMessageKind.String(string(eventflow.KindFromContext(ctx))),
				AttrStreamName.String(eventflow.StreamNameFromContext(ctx)),
				AttrStreamPos.String(fmt.Sprintf("%d", eventflow.PositionFromContext(ctx))),
				AttrGlobalPos.String(fmt.Sprintf("%d", eventflow.GlobalPositionFromContext(ctx))),
			),
		}

		ctx, span := tracer.Start(ctx, fmt.Sprintf("messages.handle %s", msgType), attrs...)
		defer span.End()

		startTime := time.Now()
		err := next.Handle(ctx, payload)

		MessagesHandled.Add(ctx, 1, metric.WithAttributes(AttrMessageType.String(msgType)))
		HandleDuration.Record(ctx,
			float64(time.Since(startTime).Milliseconds()),
			metric.WithAttributes(AttrMessageType.String(msgType)),
		)

		if err != nil {
			var skipped *eventflow.ErrSkippedMessage
			if errors.As(err, &skipped) {
				span.SetStatus(codes.Ok, "message skipped")
			} else {
				MessagesFailed.Add(ctx, 1, metric.WithAttributes(AttrMessageType.String(msgType)))
				span.SetStatus(codes.Error, err.Error())
				span.RecordError(err)
			}
			return err
		}
		span.SetStatus(codes.Ok, "")
		return nil
	})
}
