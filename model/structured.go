package model

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"
	"github.com/tmc/langchaingo/llms"
)

// Schema constrains a model call to produce a value of type T. The JSON
// schema is derived from T's json and description struct tags; the model is
// forced to call a function named after the schema whose arguments are the
// value.
type Schema[T any] struct {
	Name        string
	Description string
	definition  *jsonschema.Definition
}

// NewSchema builds the schema for T.
func NewSchema[T any](name, description string) (*Schema[T], error) {
	var zero T
	def, err := jsonschema.GenerateSchemaForType(zero)
	if err != nil {
		return nil, fmt.Errorf("generate schema %s: %w", name, err)
	}
	return &Schema[T]{
		Name:        name,
		Description: description,
		definition:  def,
	}, nil
}

// MustSchema is like NewSchema but panics on error. It is meant for
// package-level schema declarations.
func MustSchema[T any](name, description string) *Schema[T] {
	s, err := NewSchema[T](name, description)
	if err != nil {
		panic(err)
	}
	return s
}

// Definition returns the JSON schema.
func (s *Schema[T]) Definition() *jsonschema.Definition {
	return s.definition
}

// Tool returns the function definition bound to the model.
func (s *Schema[T]) Tool() llms.Tool {
	return llms.Tool{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name:        s.Name,
			Description: s.Description,
			Parameters:  s.definition,
		},
	}
}

// Parse validates raw JSON against the schema and decodes it.
func (s *Schema[T]) Parse(raw string) (T, error) {
	var out T
	raw = stripCodeFence(raw)
	if raw == "" {
		return out, &SchemaError{Schema: s.Name, Raw: raw, Err: errors.New("empty output")}
	}
	if err := s.definition.Unmarshal(raw, &out); err != nil {
		var zero T
		return zero, &SchemaError{Schema: s.Name, Raw: raw, Err: err}
	}
	return out, nil
}

// Invoke sends prompt as a single human message and returns the parsed value.
func (s *Schema[T]) Invoke(ctx context.Context, c *Caller, prompt string) (T, error) {
	return s.InvokeMessages(ctx, c, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	})
}

// InvokeMessages is Invoke with an explicit message list.
func (s *Schema[T]) InvokeMessages(ctx context.Context, c *Caller, messages []llms.MessageContent) (T, error) {
	var zero T

	choice, err := c.generate(ctx, messages,
		llms.WithTools([]llms.Tool{s.Tool()}),
		llms.WithToolChoice(llms.ToolChoice{
			Type:     "function",
			Function: &llms.FunctionReference{Name: s.Name},
		}),
	)
	if err != nil {
		return zero, err
	}

	for _, tc := range choice.ToolCalls {
		if tc.FunctionCall != nil && tc.FunctionCall.Name == s.Name {
			return s.Parse(tc.FunctionCall.Arguments)
		}
	}
	if len(choice.ToolCalls) > 0 {
		name := ""
		if fc := choice.ToolCalls[0].FunctionCall; fc != nil {
			name = fc.Name
		}
		return zero, &SchemaError{
			Schema: s.Name,
			Err:    fmt.Errorf("model called %q instead", name),
		}
	}

	// Some providers ignore the forced tool choice and answer in plain JSON.
	return s.Parse(choice.Content)
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
