package graph

import (
	"context"
	"errors"
	"fmt"
)

// END is a special constant used to represent the end node in the graph.
const END = "END"

var (
	// ErrEntryPointNotSet is returned when the entry point of the graph is not set.
	ErrEntryPointNotSet = errors.New("entry point not set")

	// ErrNodeNotFound is returned when a node is not found in the graph.
	ErrNodeNotFound = errors.New("node not found")

	// ErrNoOutgoingEdge is returned when no outgoing edge is found for a node.
	ErrNoOutgoingEdge = errors.New("no outgoing edge found for node")

	// ErrStepLimitExceeded is returned when a run needs more supersteps than
	// the limit configured with SetMaxSteps.
	ErrStepLimitExceeded = errors.New("step limit exceeded")

	// ErrInvalidSendArg is returned when a Send carries an argument the target
	// node cannot accept.
	ErrInvalidSendArg = errors.New("invalid send argument")
)

// TypedNode represents a node in a StateGraph[S].
type TypedNode[S any] struct {
	// Name is the unique identifier for the node.
	Name string

	// Description describes the functionality of the node.
	Description string

	// Function receives the current state and returns a state update.
	// It is nil for nodes registered with AddSendNode.
	Function func(ctx context.Context, state S) (S, error)

	// send receives the argument of a Send addressed to this node.
	send func(ctx context.Context, arg any) (S, error)
}

// Edge represents an edge in the graph.
type Edge struct {
	// From is the name of the node from which the edge originates.
	From string

	// To is the name of the node to which the edge points.
	To string
}

// Send addresses one node execution with its own argument. Returning several
// Sends from a fan-out edge runs the target once per Send, concurrently, in
// the next superstep.
type Send struct {
	// Node is the target node name.
	Node string

	// Arg is handed to the node instead of the graph state. It must be
	// assignable to the node's argument type.
	Arg any
}

// TypedStateMerger merges the updates of one superstep into the current state.
type TypedStateMerger[S any] func(ctx context.Context, currentState S, updates []S) (S, error)

// invoke runs the node for a task. A nil arg means the node receives the
// graph state.
func (n TypedNode[S]) invoke(ctx context.Context, state S, arg any, fromSend bool) (S, error) {
	if fromSend {
		if n.send != nil {
			return n.send(ctx, arg)
		}
		s, ok := arg.(S)
		if !ok {
			var zero S
			return zero, fmt.Errorf("%w: node %s expects %T, got %T", ErrInvalidSendArg, n.Name, zero, arg)
		}
		return n.Function(ctx, s)
	}
	if n.Function == nil {
		var zero S
		return zero, fmt.Errorf("%w: node %s only accepts Send", ErrInvalidSendArg, n.Name)
	}
	return n.Function(ctx, state)
}
