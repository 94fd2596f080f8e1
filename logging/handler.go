// Package logging provides slog-based middleware for message handlers.
package logging

import (
	"context"
	"log/slog"

	"github.com/streamhaven/eventflow"
)

// WithLoggingMiddleware wraps a handler with structured logging of the
// message attributes carried in the context.
func WithLoggingMiddleware(logger *slog.Logger, next eventflow.Handler) eventflow.Handler {
	return eventflow.NewHandlerFunc(func(ctx context.Context, payload any) error {
		l := logger.With(
			"message-id", eventflow.MessageIDFromContext(ctx),
			"stream", eventflow.StreamNameFromContext(ctx),
			"type", eventflow.MessageTypeFromContext(ctx),
			"kind", string(eventflow.KindFromContext(ctx)),
			"position", eventflow.PositionFromContext(ctx),
			"global-position", eventflow.GlobalPositionFromContext(ctx),
		)

		l.DebugContext(ctx, "message processing started")

		err := next.Handle(ctx, payload)

		if err != nil {
			l.ErrorContext(ctx, "error processing message", "error", err)
		} else {
			l.DebugContext(ctx, "message processed successfully")
		}

		return err
	})
}
