package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/sashabaranov/go-openai/jsonschema"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/tools"
)

// ErrInvalidArguments is returned when tool-call arguments do not match the
// tool's parameter schema.
var ErrInvalidArguments = errors.New("invalid tool arguments")

// Tool is a callable the model may request. It is a langchaingo tools.Tool
// whose Call input is the JSON arguments of a tool call, plus the function
// definition advertised to the model.
type Tool interface {
	tools.Tool

	// Definition describes the tool and its parameters to the model.
	Definition() llms.Tool
}

// FuncTool adapts a typed Go function to Tool. Parameters are decoded from the
// call arguments into P; the result R is JSON-encoded into the tool message.
type FuncTool[P, R any] struct {
	name        string
	description string
	schema      *jsonschema.Definition
	fn          func(ctx context.Context, params P) (R, error)
}

var _ Tool = (*FuncTool[struct{}, int])(nil)

// NewFuncTool creates a FuncTool. The parameter schema is generated from P,
// which must be a struct; json tags name the parameters and description tags
// document them.
func NewFuncTool[P, R any](name, description string, fn func(ctx context.Context, params P) (R, error)) (*FuncTool[P, R], error) {
	if name == "" {
		return nil, errors.New("tool name is required")
	}
	var zero P
	schema, err := jsonschema.GenerateSchemaForType(zero)
	if err != nil {
		return nil, fmt.Errorf("generate schema for tool %s: %w", name, err)
	}
	if schema.Type != jsonschema.Object {
		return nil, fmt.Errorf("tool %s: parameters must be a struct, got %T", name, zero)
	}
	return &FuncTool[P, R]{
		name:        name,
		description: description,
		schema:      schema,
		fn:          fn,
	}, nil
}

// MustFuncTool is like NewFuncTool but panics on error.
func MustFuncTool[P, R any](name, description string, fn func(ctx context.Context, params P) (R, error)) *FuncTool[P, R] {
	t, err := NewFuncTool(name, description, fn)
	if err != nil {
		panic(err)
	}
	return t
}

// Name returns the tool name.
func (t *FuncTool[P, R]) Name() string {
	return t.name
}

// Description returns the human-readable description shown to the model.
func (t *FuncTool[P, R]) Description() string {
	return t.description
}

// Schema returns the parameter schema.
func (t *FuncTool[P, R]) Schema() *jsonschema.Definition {
	return t.schema
}

// Definition returns the function definition bound to the model.
func (t *FuncTool[P, R]) Definition() llms.Tool {
	return llms.Tool{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name:        t.name,
			Description: t.description,
			Parameters:  t.schema,
		},
	}
}

// Call decodes the JSON arguments, runs the function and encodes its result.
func (t *FuncTool[P, R]) Call(ctx context.Context, input string) (string, error) {
	params, err := t.decode(input)
	if err != nil {
		return "", err
	}

	res, err := t.fn(ctx, params)
	if err != nil {
		return "", err
	}

	if s, ok := any(res).(string); ok {
		return s, nil
	}
	out, err := json.Marshal(res)
	if err != nil {
		return "", fmt.Errorf("encode result of %s: %w", t.name, err)
	}
	return string(out), nil
}

func (t *FuncTool[P, R]) decode(input string) (P, error) {
	var params P

	input = strings.TrimSpace(input)
	if input == "" {
		input = "{}"
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(input), &raw); err != nil {
		return params, fmt.Errorf("%w for %s: %v", ErrInvalidArguments, t.name, err)
	}
	for _, field := range t.schema.Required {
		if _, ok := raw[field]; !ok {
			return params, fmt.Errorf("%w for %s: missing %q", ErrInvalidArguments, t.name, field)
		}
	}

	if !jsonschema.Validate(*t.schema, raw) {
		return params, fmt.Errorf("%w for %s: %s does not match the parameter schema", ErrInvalidArguments, t.name, input)
	}

	// JSON numbers arrive as float64; mapstructure narrows them into the
	// integer fields that passed schema validation.
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      &params,
		TagName:     "json",
		ErrorUnused: true,
	})
	if err != nil {
		return params, err
	}
	if err := decoder.Decode(raw); err != nil {
		return params, fmt.Errorf("%w for %s: %v", ErrInvalidArguments, t.name, err)
	}
	return params, nil
}
