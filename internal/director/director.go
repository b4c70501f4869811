// Package director classifies a user utterance into one of the registered
// prompt functions and runs it.
package director

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"chatdragon/internal/debug"
	"chatdragon/internal/llm"
	"chatdragon/internal/telemetry"
)

// ErrUnexpectedReply is returned when the classification round trip comes
// back in a shape that is neither text nor a function call.
var ErrUnexpectedReply = errors.New("unexpected reply from intent classification")

// Director interprets user intent by letting the model pick a registered
// function.
type Director struct {
	registry    *Registry
	completer   llm.Completer
	debugLogger *debug.Logger
	metrics     *telemetry.Metrics
	tracer      trace.Tracer
}

func NewDirector(registry *Registry, completer llm.Completer, debugLogger *debug.Logger, metrics *telemetry.Metrics) *Director {
	return &Director{
		registry:    registry,
		completer:   completer,
		debugLogger: debugLogger,
		metrics:     metrics,
		tracer:      otel.Tracer("director"),
	}
}

// GetIntent sends ask as a single user turn with every registered function
// offered as a tool. When the model proposes no call the result is "" and
// no error. Otherwise the first proposed call is run and its text returned
// verbatim.
func (d *Director) GetIntent(ctx context.Context, ask string) (string, error) {
	ctx, span := d.tracer.Start(ctx, "director.get_intent",
		trace.WithAttributes(
			attribute.Int("functions_offered", len(d.registry.Names())),
		),
	)
	defer span.End()

	d.debugLogger.Printf("Classifying intent: %q", ask)

	reply, err := d.completer.Complete(ctx, llm.CompletionRequest{
		Operation: "chat.intent",
		Messages:  []llm.Message{{Role: llm.RoleUser, Content: ask}},
		Functions: d.registry.Tools(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "classification failed")
		return "", fmt.Errorf("intent classification failed: %w", err)
	}

	span.SetAttributes(attribute.String("reply_kind", reply.Kind()))

	switch r := reply.(type) {
	case llm.ReplyText:
		d.debugLogger.Printf("No function proposed for %q", ask)
		return "", nil
	case llm.ReplyFunctionCall:
		if len(r.Calls) > 1 {
			d.debugLogger.Printf("Model proposed %d calls, running the first", len(r.Calls))
		}
		return d.dispatch(ctx, r.First())
	case llm.ReplyMalformed:
		err := fmt.Errorf("%w: %s", ErrUnexpectedReply, r.Reason)
		span.RecordError(err)
		span.SetStatus(codes.Error, "unexpected reply")
		return "", err
	default:
		err := fmt.Errorf("%w: %s", ErrUnexpectedReply, reply.Kind())
		span.RecordError(err)
		return "", err
	}
}

// dispatch resolves a proposed call against the registry and runs it.
func (d *Director) dispatch(ctx context.Context, call llm.FunctionCall) (string, error) {
	ctx, span := d.tracer.Start(ctx, "director.dispatch",
		trace.WithAttributes(
			attribute.String("function_name", call.Name),
			attribute.String("call_id", call.ID),
		),
	)
	defer span.End()

	run, args, err := d.registry.Resolve(call.Name, call.Arguments)
	if err != nil {
		reason := "invalid_arguments"
		label := call.Name
		if errors.Is(err, ErrUnknownFunction) {
			reason = "unknown_function"
			label = "unknown"
		}
		d.debugLogger.Printf("Rejected call %s(%s): %v", call.Name, call.Arguments, err)
		d.metrics.ObserveFunction(label, "intent", reason)
		span.SetAttributes(attribute.String("error_type", reason))
		span.RecordError(err)
		span.SetStatus(codes.Error, reason)
		return "", err
	}

	d.debugLogger.Printf("Dispatching %s with %d argument(s)", call.Name, len(args))

	result, err := run(ctx)
	if err != nil {
		d.metrics.ObserveFunction(call.Name, "intent", "execution_failed")
		span.SetAttributes(attribute.String("error_type", "execution_failed"))
		span.RecordError(err)
		span.SetStatus(codes.Error, "execution_failed")
		return "", fmt.Errorf("failed to execute %s: %w", call.Name, err)
	}

	d.metrics.ObserveFunction(call.Name, "intent", "")
	span.SetAttributes(
		attribute.String("result", "success"),
		attribute.Int("result_length", len(result)),
	)
	return result, nil
}
