package tool

import (
	"context"
	"errors"
)

// ErrDivisionByZero is returned by the divide tool.
var ErrDivisionByZero = errors.New("division by zero")

// Operands are the parameters of the arithmetic tools.
type Operands struct {
	A int `json:"a" description:"first int"`
	B int `json:"b" description:"second int"`
}

// NewAdd returns the add tool.
func NewAdd() Tool {
	return MustFuncTool("add", "Adds a and b.", func(_ context.Context, p Operands) (int, error) {
		return p.A + p.B, nil
	})
}

// NewMultiply returns the multiply tool.
func NewMultiply() Tool {
	return MustFuncTool("multiply", "Multiplies a and b.", func(_ context.Context, p Operands) (int, error) {
		return p.A * p.B, nil
	})
}

// NewDivide returns the divide tool. It fails on a zero divisor.
func NewDivide() Tool {
	return MustFuncTool("divide", "Divide a and b.", func(_ context.Context, p Operands) (float64, error) {
		if p.B == 0 {
			return 0, ErrDivisionByZero
		}
		return float64(p.A) / float64(p.B), nil
	})
}

// Arithmetic returns add, multiply and divide.
func Arithmetic() []Tool {
	return []Tool{NewAdd(), NewMultiply(), NewDivide()}
}
