package engine

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/unitops/packml/packml"
)

// startTransitionSpan creates a span for a single committed transition.
// Uses the global tracer initialized by github.com/unitops/packml/telemetry.
// The caller is responsible for calling span.End().
//
//nolint:spancheck // Span lifecycle managed by caller (factory pattern)
func startTransitionSpan(unit string, from, to packml.State, trigger Trigger) trace.Span {
	tracer := otel.Tracer("packml/engine")

	_, span := tracer.Start(context.Background(), "transition."+to.String(),
		trace.WithAttributes(
			attribute.String("unit", unit),
			attribute.String("from_state", from.String()),
			attribute.String("to_state", to.String()),
			attribute.String("trigger", string(trigger)),
		))

	return span
}
