package otelx

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestTraceContextRoundTrip(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})

	tc := CaptureTraceContext(trace.ContextWithSpanContext(context.Background(), sc))
	if tc.Parent == "" {
		t.Fatal("expected traceparent to be captured")
	}
	got := trace.SpanContextFromContext(tc.Attach(context.Background()))
	if got.TraceID() != traceID {
		t.Fatalf("trace id mismatch: %s", got.TraceID())
	}
	if ctx := (TraceContext{}).Attach(context.Background()); trace.SpanContextFromContext(ctx).IsValid() {
		t.Fatal("empty trace context must not attach a parent")
	}
}
