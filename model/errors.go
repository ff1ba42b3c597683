package model

import (
	"errors"
	"fmt"
)

// ErrModelCall matches every *CallError through errors.Is.
var ErrModelCall = errors.New("model call failed")

// CallError reports a failed call to the hosted model: transport, auth,
// timeout, rate limit or an unusable response.
type CallError struct {
	Err error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("model call failed: %v", e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrModelCall) hold for any CallError.
func (e *CallError) Is(target error) bool {
	return target == ErrModelCall
}

// SchemaError reports model output that does not conform to a structured
// output schema.
type SchemaError struct {
	// Schema is the name of the schema.
	Schema string
	// Raw is the output as received.
	Raw string
	Err error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("output does not conform to schema %s: %v", e.Schema, e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}
