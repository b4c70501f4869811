package observability

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"

	"chatdragon/internal/config"
)

func TestDisabledTracing(t *testing.T) {
	tp, err := InitTracing(context.Background(), config.TelemetryConfig{TracesEnabled: false})
	if err != nil {
		t.Fatalf("InitTracing failed: %v", err)
	}
	if tp.IsEnabled() {
		t.Error("Expected tracing to be disabled")
	}

	_, span := tp.Tracer("test").Start(context.Background(), "noop")
	if span.SpanContext().IsValid() {
		t.Error("Expected a no-op span")
	}
	span.End()

	if err := tp.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}

	var nilProvider *TracerProvider
	if nilProvider.IsEnabled() {
		t.Error("Expected nil provider to be disabled")
	}
	nilProvider.Tracer("nil").Start(context.Background(), "noop")
}

func TestRequestID(t *testing.T) {
	ctx := context.Background()
	if got := RequestIDFromContext(ctx); got != "" {
		t.Errorf("Expected empty request id, got %q", got)
	}

	ctx = WithRequestID(ctx, "req-7")
	if got := RequestIDFromContext(ctx); got != "req-7" {
		t.Errorf("Expected req-7, got %q", got)
	}
}

func TestCreateGenAIAttributes(t *testing.T) {
	attrs := CreateGenAIAttributes("az.ai.openai", "gpt-4o", 800, -1)

	got := map[attribute.Key]attribute.Value{}
	for _, kv := range attrs {
		got[kv.Key] = kv.Value
	}

	if got["gen_ai.request.model"].AsString() != "gpt-4o" {
		t.Errorf("Expected model attribute, got %v", got["gen_ai.request.model"])
	}
	if got["gen_ai.request.max_tokens"].AsInt64() != 800 {
		t.Errorf("Expected max tokens attribute, got %v", got["gen_ai.request.max_tokens"])
	}
	if _, ok := got["gen_ai.request.temperature"]; ok {
		t.Error("Expected no temperature attribute for a negative temperature")
	}
}
