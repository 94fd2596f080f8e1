// Package otel provides OpenTelemetry tracing and metrics middleware for
// handlers and message stores.
package otel

import (
	"github.com/streamhaven/eventflow"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "github.com/streamhaven/eventflow"
)

// Semantic attribute keys following OpenTelemetry conventions
const (
	// Message attributes
	AttrMessageType = attribute.Key("eventflow.message.type")
	AttrMessageID   = attribute.Key("eventflow.message.id")
	AttrMessageKind = attribute.Key("eventflow.message.kind")

	// Stream attributes
	AttrStreamName = attribute.Key("eventflow.stream.name")
	AttrStreamPos  = attribute.Key("eventflow.stream.position")
	AttrGlobalPos  = attribute.Key("eventflow.global_position")

	// Store attributes
	AttrOperation = attribute.Key("eventflow.operation")
	AttrStatus    = attribute.Key("eventflow.status")

	// Error attributes
	AttrErrorType = attribute.Key("eventflow.error.type")
)

var (
	meter  = otel.Meter(instrumentationName, metric.WithInstrumentationVersion(eventflow.InstrumentationVersion))
	tracer = otel.Tracer(instrumentationName, trace.WithInstrumentationVersion(eventflow.InstrumentationVersion))

	// Dispatch metrics
	MessagesHandled, _ = meter.Int64Counter(
		"eventflow.messages.handled",
		metric.WithDescription("Total number of messages handled"),
		metric.WithUnit("{message}"),
	)

	HandleDuration, _ = meter.Float64Histogram(
		"eventflow.messages.duration",
		metric.WithDescription("Message handling duration"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000),
	)

	MessagesFailed, _ = meter.Int64Counter(
		"eventflow.messages.failed",
		metric.WithDescription("Total number of messages whose handler failed"),
		metric.WithUnit("{message}"),
	)

	// Store metrics
	StoreAppends, _ = meter.Int64Counter(
		"eventflow.store.appends",
		metric.WithDescription("Total number of records appended"),
		metric.WithUnit("{record}"),
	)

	StoreTransitions, _ = meter.Int64Counter(
		"eventflow.store.transitions",
		metric.WithDescription("Total number of record status transitions"),
		metric.WithUnit("{record}"),
	)

	StoreDuration, _ = meter.Float64Histogram(
		"eventflow.store.duration",
		metric.WithDescription("Store operation duration"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 25, 50, 100, 250, 500, 1000),
	)
)
