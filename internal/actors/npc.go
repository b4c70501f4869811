// Package actors generates non-player characters.
package actors

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"chatdragon/internal/debug"
	"chatdragon/internal/prompts"
	"chatdragon/internal/telemetry"
)

// ErrEmptyGeneration is returned when the model produced no usable text.
var ErrEmptyGeneration = errors.New("Failed to generate NPC.")

// NonPlayerCharacter is the record the NPC prompt asks the model to emit.
// Field names match case-insensitively when decoding.
type NonPlayerCharacter struct {
	Name        string `json:"name,omitempty"`
	Race        string `json:"race,omitempty"`
	Gender      string `json:"gender,omitempty"`
	Age         Scalar `json:"age,omitempty"`
	Occupation  string `json:"occupation,omitempty"`
	Alignment   string `json:"alignment,omitempty"`
	Appearance  string `json:"appearance,omitempty"`
	Personality string `json:"personality,omitempty"`
	Background  string `json:"background,omitempty"`
	Motivation  string `json:"motivation,omitempty"`
	Quirk       string `json:"quirk,omitempty"`
	Secret      string `json:"secret,omitempty"`
}

// Scalar is a JSON string, number or boolean kept exactly as the model
// wrote it, so an age of 45 stays 45 and "45" stays "45".
type Scalar json.RawMessage

func (s Scalar) MarshalJSON() ([]byte, error) {
	if len(s) == 0 {
		return []byte("null"), nil
	}
	return s, nil
}

func (s *Scalar) UnmarshalJSON(data []byte) error {
	raw := bytes.TrimSpace(data)
	if string(raw) == "null" {
		*s = nil
		return nil
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	switch v.(type) {
	case string, float64, bool:
	default:
		return fmt.Errorf("cannot use %s as a scalar", raw)
	}

	*s = append((*s)[:0], raw...)
	return nil
}

// String renders the value for display. Strings lose their quotes.
func (s Scalar) String() string {
	var str string
	if err := json.Unmarshal(s, &str); err == nil {
		return str
	}
	return string(s)
}

// DecodeError reports model output that is not a valid NPC JSON object.
type DecodeError struct {
	Output string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to deserialize NPC: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// FunctionCaller runs a registered prompt function by name.
type FunctionCaller interface {
	Call(ctx context.Context, name string, args map[string]any) (string, error)
}

type Generator struct {
	functions   FunctionCaller
	debugLogger *debug.Logger
	metrics     *telemetry.Metrics
	tracer      trace.Tracer
}

func NewGenerator(functions FunctionCaller, debugLogger *debug.Logger, metrics *telemetry.Metrics) *Generator {
	return &Generator{
		functions:   functions,
		debugLogger: debugLogger,
		metrics:     metrics,
		tracer:      otel.Tracer("actors"),
	}
}

// GenerateQuick runs the NPC prompt with ask as its input and decodes the
// result. Blank output is ErrEmptyGeneration and is never parsed; output
// that does not parse is a *DecodeError.
func (g *Generator) GenerateQuick(ctx context.Context, ask string) (*NonPlayerCharacter, error) {
	ctx, span := g.tracer.Start(ctx, "npc.generate_quick")
	defer span.End()

	g.debugLogger.Printf("Generating NPC: %q", ask)

	output, err := g.functions.Call(ctx, prompts.NpcGenerateQuick, map[string]any{"input": ask})
	if err != nil {
		g.metrics.ObserveFunction(prompts.NpcGenerateQuick, "npc", "execution_failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, "execution_failed")
		return nil, fmt.Errorf("NPC generation failed: %w", err)
	}

	if strings.TrimSpace(output) == "" {
		g.metrics.ObserveFunction(prompts.NpcGenerateQuick, "npc", "empty_output")
		span.SetStatus(codes.Error, "empty_output")
		return nil, ErrEmptyGeneration
	}

	npc, err := DecodeNPC(output)
	if err != nil {
		g.debugLogger.Printf("Failed to decode NPC output: %v", err)
		g.metrics.ObserveFunction(prompts.NpcGenerateQuick, "npc", "decode_failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode_failed")
		return nil, err
	}

	g.metrics.ObserveFunction(prompts.NpcGenerateQuick, "npc", "")
	span.SetAttributes(attribute.String("npc.name", npc.Name))
	return npc, nil
}

// DecodeNPC parses model output as a single JSON object. A bare null is
// rejected like any other non-object.
func DecodeNPC(output string) (*NonPlayerCharacter, error) {
	trimmed := strings.TrimSpace(output)
	if !strings.HasPrefix(trimmed, "{") {
		return nil, &DecodeError{Output: output, Err: errors.New("output is not a JSON object")}
	}

	var npc NonPlayerCharacter
	if err := json.Unmarshal([]byte(trimmed), &npc); err != nil {
		return nil, &DecodeError{Output: output, Err: err}
	}
	return &npc, nil
}
