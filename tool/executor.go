package tool

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
)

// UnknownToolError is returned when a tool call names a tool that is not
// registered.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool %q", e.Name)
}

// ToolExecutionError wraps a failure raised while running a tool, including
// invalid arguments.
type ToolExecutionError struct {
	Tool   string
	CallID string
	Err    error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %s (call %s) failed: %v", e.Tool, e.CallID, e.Err)
}

func (e *ToolExecutionError) Unwrap() error {
	return e.Err
}

// Invocation is a single request to run a tool.
type Invocation struct {
	CallID    string
	Tool      string
	Arguments string
}

// InvocationFromCall converts a model tool call.
func InvocationFromCall(tc llms.ToolCall) Invocation {
	inv := Invocation{CallID: tc.ID}
	if tc.FunctionCall != nil {
		inv.Tool = tc.FunctionCall.Name
		inv.Arguments = tc.FunctionCall.Arguments
	}
	return inv
}

// Executor is a registry of tools keyed by name.
type Executor struct {
	tools map[string]Tool
	order []string
}

// NewExecutor creates an Executor. Later tools replace earlier ones with the
// same name.
func NewExecutor(tools ...Tool) *Executor {
	e := &Executor{tools: make(map[string]Tool)}
	for _, t := range tools {
		e.Register(t)
	}
	return e
}

// Register adds or replaces a tool.
func (e *Executor) Register(t Tool) {
	if _, exists := e.tools[t.Name()]; !exists {
		e.order = append(e.order, t.Name())
	}
	e.tools[t.Name()] = t
}

// Lookup returns the tool registered under name.
func (e *Executor) Lookup(name string) (Tool, bool) {
	t, ok := e.tools[name]
	return t, ok
}

// Names returns the registered tool names in registration order.
func (e *Executor) Names() []string {
	out := make([]string, len(e.order))
	copy(out, e.order)
	return out
}

// Definitions returns the function definitions of all tools in registration
// order.
func (e *Executor) Definitions() []llms.Tool {
	defs := make([]llms.Tool, 0, len(e.order))
	for _, name := range e.order {
		defs = append(defs, e.tools[name].Definition())
	}
	return defs
}

// Execute runs the invocation's tool.
func (e *Executor) Execute(ctx context.Context, inv Invocation) (string, error) {
	t, ok := e.tools[inv.Tool]
	if !ok {
		return "", &UnknownToolError{Name: inv.Tool}
	}

	out, err := t.Call(ctx, inv.Arguments)
	if err != nil {
		return "", &ToolExecutionError{Tool: inv.Tool, CallID: inv.CallID, Err: err}
	}
	return out, nil
}
