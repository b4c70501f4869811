package director

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"chatdragon/internal/llm"
	"chatdragon/internal/prompts"
)

var (
	ErrUnknownFunction  = errors.New("unknown function")
	ErrInvalidArguments = errors.New("invalid function arguments")
	ErrDuplicateName    = errors.New("duplicate function name")
)

// Handler runs one registered function with already validated arguments.
type Handler func(ctx context.Context, args map[string]any) (string, error)

type registration struct {
	name        string
	description string
	parameters  map[string]any
	schema      *gojsonschema.Schema
	handler     Handler
}

// Registry is the immutable name to function table shared by every request.
// Lookups and calls never mutate it.
type Registry struct {
	functions map[string]*registration
	order     []string
}

// NewRegistry binds each prompt function to the completion client. Names
// must be unique.
func NewRegistry(completer llm.Completer, functions ...*prompts.Function) (*Registry, error) {
	r := &Registry{functions: make(map[string]*registration, len(functions))}

	for _, fn := range functions {
		if _, exists := r.functions[fn.Name()]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateName, fn.Name())
		}

		params := parameterSchema(fn.Parameters())
		schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(params))
		if err != nil {
			return nil, fmt.Errorf("failed to compile parameter schema for %s: %w", fn.Name(), err)
		}

		fn := fn
		r.functions[fn.Name()] = &registration{
			name:        fn.Name(),
			description: fn.Description(),
			parameters:  params,
			schema:      schema,
			handler: func(ctx context.Context, args map[string]any) (string, error) {
				return fn.Invoke(ctx, completer, args)
			},
		}
		r.order = append(r.order, fn.Name())
	}

	return r, nil
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Registry) Has(name string) bool {
	_, ok := r.functions[name]
	return ok
}

func (r *Registry) Description(name string) string {
	if reg, ok := r.functions[name]; ok {
		return reg.description
	}
	return ""
}

// Schema returns the JSON schema of a function's arguments.
func (r *Registry) Schema(name string) (map[string]any, bool) {
	reg, ok := r.functions[name]
	if !ok {
		return nil, false
	}
	return reg.parameters, true
}

// Tools returns a tool definition for every registered function.
func (r *Registry) Tools() []llm.FunctionDefinition {
	tools := make([]llm.FunctionDefinition, 0, len(r.order))
	for _, name := range r.order {
		reg := r.functions[name]
		tools = append(tools, llm.FunctionDefinition{
			Name:        reg.name,
			Description: reg.description,
			Parameters:  reg.parameters,
		})
	}
	return tools
}

// Resolve validates raw JSON arguments against the function's schema and
// returns a call ready to run.
func (r *Registry) Resolve(name, arguments string) (func(ctx context.Context) (string, error), map[string]any, error) {
	reg, ok := r.functions[name]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}

	if strings.TrimSpace(arguments) == "" {
		arguments = "{}"
	}

	result, err := reg.schema.Validate(gojsonschema.NewStringLoader(arguments))
	if err != nil {
		return nil, nil, fmt.Errorf("%w for %s: %v", ErrInvalidArguments, name, err)
	}
	if !result.Valid() {
		var errs []string
		for _, e := range result.Errors() {
			errs = append(errs, e.String())
		}
		sort.Strings(errs)
		return nil, nil, fmt.Errorf("%w for %s: %s", ErrInvalidArguments, name, strings.Join(errs, "; "))
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return nil, nil, fmt.Errorf("%w for %s: %v", ErrInvalidArguments, name, err)
	}

	return func(ctx context.Context) (string, error) {
		return reg.handler(ctx, args)
	}, args, nil
}

// Call validates arguments and runs the named function.
func (r *Registry) Call(ctx context.Context, name string, args map[string]any) (string, error) {
	if args == nil {
		args = map[string]any{}
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("%w for %s: %v", ErrInvalidArguments, name, err)
	}
	run, _, err := r.Resolve(name, string(raw))
	if err != nil {
		return "", err
	}
	return run(ctx)
}

// parameterSchema describes a prompt's input variables as a JSON object
// schema with string properties.
func parameterSchema(params []prompts.InputVariable) map[string]any {
	properties := make(map[string]any, len(params))
	required := []any{}
	for _, p := range params {
		prop := map[string]any{"type": "string"}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		properties[p.Name] = prop
		if p.IsRequired {
			required = append(required, p.Name)
		}
	}

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}
