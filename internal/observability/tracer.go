package observability

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"chatdragon/internal/config"
)

// TracerProvider wraps the OpenTelemetry tracer provider with cleanup
type TracerProvider struct {
	provider *sdktrace.TracerProvider
	enabled  bool
}

// InitTracing installs a global tracer provider exporting over OTLP/HTTP.
// When tracing is disabled it returns a disabled provider and leaves the
// global no-op provider in place.
func InitTracing(ctx context.Context, cfg config.TelemetryConfig) (*TracerProvider, error) {
	if !cfg.TracesEnabled {
		return &TracerProvider{enabled: false}, nil
	}

	exporter, err := createExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(5*time.Second),
			sdktrace.WithMaxExportBatchSize(100),
		),
		sdktrace.WithResource(createResource(cfg)),
		sdktrace.WithSpanProcessor(requestIDInjector{}),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)

	return &TracerProvider{
		provider: tp,
		enabled:  true,
	}, nil
}

// Tracer returns a tracer for the given name
func (tp *TracerProvider) Tracer(name string, options ...trace.TracerOption) trace.Tracer {
	if tp == nil || !tp.enabled {
		return noop.NewTracerProvider().Tracer(name, options...)
	}
	return tp.provider.Tracer(name, options...)
}

// Shutdown flushes pending spans.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp == nil || !tp.enabled || tp.provider == nil {
		return nil
	}
	return tp.provider.Shutdown(ctx)
}

func (tp *TracerProvider) IsEnabled() bool {
	return tp != nil && tp.enabled
}

// createExporter targets a generic OTLP collector, or Langfuse's OTLP
// ingestion when Langfuse keys are configured.
func createExporter(ctx context.Context, cfg config.TelemetryConfig) (sdktrace.SpanExporter, error) {
	opts := []otlptracehttp.Option{
		otlptracehttp.WithCompression(otlptracehttp.GzipCompression),
		otlptracehttp.WithTimeout(30 * time.Second),
	}

	endpoint := strings.TrimSuffix(cfg.OTLPEndpoint, "/")
	if cfg.LangfusePublicKey != "" && cfg.LangfuseSecretKey != "" {
		if endpoint == "" {
			endpoint = "https://cloud.langfuse.com"
		}
		auth := base64.StdEncoding.EncodeToString([]byte(cfg.LangfusePublicKey + ":" + cfg.LangfuseSecretKey))
		opts = append(opts,
			otlptracehttp.WithEndpointURL(endpoint+"/api/public/otel/v1/traces"),
			otlptracehttp.WithHeaders(map[string]string{"Authorization": "Basic " + auth}),
		)
	} else if endpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpointURL(endpoint+"/v1/traces"))
	}

	return otlptracehttp.New(ctx, opts...)
}

func createResource(cfg config.TelemetryConfig) *resource.Resource {
	return resource.NewWithAttributes(
		"",
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		attribute.String("deployment.environment", cfg.Environment),
	)
}

// CreateGenAIAttributes creates GenAI semantic convention attributes for LLM spans
func CreateGenAIAttributes(system, model string, maxTokens int64, temperature float64) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("gen_ai.operation.name", "chat"),
		attribute.String("gen_ai.system", system),
		attribute.String("gen_ai.request.model", model),
	}

	if maxTokens > 0 {
		attrs = append(attrs, attribute.Int64("gen_ai.request.max_tokens", maxTokens))
	}

	if temperature >= 0 {
		attrs = append(attrs, attribute.Float64("gen_ai.request.temperature", temperature))
	}

	return attrs
}

type contextKey string

const requestIDKey contextKey = "request_id"

// WithRequestID tags ctx with the inbound request id so spans and completion
// log records can be correlated.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}

type requestIDInjector struct{}

func (requestIDInjector) OnStart(ctx context.Context, s sdktrace.ReadWriteSpan) {
	if rid := RequestIDFromContext(ctx); rid != "" {
		s.SetAttributes(
			attribute.String("http.request_id", rid),
			attribute.String("langfuse.session.id", rid),
		)
	}
}

func (requestIDInjector) OnEnd(s sdktrace.ReadOnlySpan)    {}
func (requestIDInjector) Shutdown(context.Context) error   { return nil }
func (requestIDInjector) ForceFlush(context.Context) error { return nil }
