// Package tool defines the tools a model can call and the registry that runs
// them.
//
// A Tool pairs a langchaingo tools.Tool with the function definition bound to
// the model. NewFuncTool builds one from a typed function: the parameter
// schema is generated from the parameter struct, call arguments are validated
// against it and decoded into the struct, and the result is JSON-encoded.
//
//	type Operands struct {
//		A int `json:"a" description:"first int"`
//		B int `json:"b" description:"second int"`
//	}
//
//	multiply := tool.MustFuncTool("multiply", "Multiplies a and b.",
//		func(_ context.Context, p Operands) (int, error) {
//			return p.A * p.B, nil
//		})
//
//	exec := tool.NewExecutor(multiply)
//	out, err := exec.Execute(ctx, tool.Invocation{Tool: "multiply", Arguments: `{"a":4,"b":5}`})
//	// out == "20"
//
// Execute returns *UnknownToolError for unregistered names and
// *ToolExecutionError for failures inside the tool, including arguments that
// do not match the schema.
package tool
