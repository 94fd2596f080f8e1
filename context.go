package eventflow

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ctxKey string

const (
	messageIDKey      ctxKey = "messageID"
	streamNameKey     ctxKey = "streamName"
	messageTypeKey    ctxKey = "messageType"
	kindKey           ctxKey = "kind"
	positionKey       ctxKey = "position"
	globalPositionKey ctxKey = "globalPosition"
	timeKey           ctxKey = "time"
	scopeKey          ctxKey = "scope"
)

// WithMessage adds the addressing attributes of a message to the context so
// that middleware and handlers can observe them.
func WithMessage(ctx context.Context, msg *Message) context.Context {
	ctx = context.WithValue(ctx, messageIDKey, msg.MessageID)
	ctx = context.WithValue(ctx, streamNameKey, msg.StreamName)
	ctx = context.WithValue(ctx, messageTypeKey, msg.Type)
	ctx = context.WithValue(ctx, kindKey, msg.Metadata.Kind)
	ctx = context.WithValue(ctx, positionKey, msg.Position)
	ctx = context.WithValue(ctx, globalPositionKey, msg.GlobalPosition)
	ctx = context.WithValue(ctx, timeKey, msg.Time)
	return ctx
}

// MessageIDFromContext returns the message id or uuid.Nil if not present.
func MessageIDFromContext(ctx context.Context) uuid.UUID {
	if v, ok := ctx.Value(messageIDKey).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}

// StreamNameFromContext returns the stream name or "" if not present.
func StreamNameFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(streamNameKey).(string); ok {
		return v
	}
	return ""
}

// MessageTypeFromContext returns the message type name or "" if not present.
func MessageTypeFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(messageTypeKey).(string); ok {
		return v
	}
	return ""
}

// KindFromContext returns the message kind or "" if not present.
func KindFromContext(ctx context.Context) Kind {
	if v, ok := ctx.Value(kindKey).(Kind); ok {
		return v
	}
	return ""
}

// PositionFromContext returns the stream position or 0 if not present.
func PositionFromContext(ctx context.Context) uint64 {
	if v, ok := ctx.Value(positionKey).(uint64); ok {
		return v
	}
	return 0
}

// GlobalPositionFromContext returns the global position or 0 if not present.
func GlobalPositionFromContext(ctx context.Context) uint64 {
	if v, ok := ctx.Value(globalPositionKey).(uint64); ok {
		return v
	}
	return 0
}

// TimeFromContext returns the message time or the zero time if not present.
func TimeFromContext(ctx context.Context) time.Time {
	if v, ok := ctx.Value(timeKey).(time.Time); ok {
		return v
	}
	return time.Time{}
}

// WithScope attaches an open unit-of-work scope to the context.
func WithScope(ctx context.Context, scope Scope) context.Context {
	return context.WithValue(ctx, scopeKey, scope)
}

// ScopeFromContext returns the active unit-of-work scope, if any. Handlers
// pass the scope into their persistence calls; a dispatcher invoked while a
// scope is already active joins it instead of opening a nested one.
func ScopeFromContext(ctx context.Context) (Scope, bool) {
	scope, ok := ctx.Value(scopeKey).(Scope)
	return scope, ok
}
