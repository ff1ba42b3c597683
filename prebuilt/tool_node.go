package prebuilt

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"

	"github.com/smallnest/graphpatterns/graph"
	"github.com/smallnest/graphpatterns/log"
	"github.com/smallnest/graphpatterns/tool"
)

// ErrNoPendingToolCalls is returned when the tool node runs but the latest AI
// message has no unanswered tool calls.
var ErrNoPendingToolCalls = errors.New("no pending tool calls")

// ToolErrorPolicy decides what a failing tool call does to the loop.
type ToolErrorPolicy int

const (
	// ToolErrorAbort ends the run with the tool's error.
	ToolErrorAbort ToolErrorPolicy = iota
	// ToolErrorReport records "Error: ..." as the tool result and lets the
	// model react to it.
	ToolErrorReport
)

// ParseToolErrorPolicy maps "abort" and "report" to a policy. The empty
// string is ToolErrorAbort.
func ParseToolErrorPolicy(s string) (ToolErrorPolicy, error) {
	switch s {
	case "", "abort":
		return ToolErrorAbort, nil
	case "report":
		return ToolErrorReport, nil
	default:
		return ToolErrorAbort, fmt.Errorf("unknown tool error policy %q", s)
	}
}

// ToolNode dispatches the pending tool calls of the latest AI message.
type ToolNode struct {
	executor *tool.Executor
	policy   ToolErrorPolicy
	logger   log.Logger
}

// NewToolNode creates a ToolNode with the abort policy.
func NewToolNode(executor *tool.Executor) *ToolNode {
	return &ToolNode{
		executor: executor,
		policy:   ToolErrorAbort,
		logger:   log.GetDefaultLogger(),
	}
}

// WithPolicy sets the tool error policy and returns the node.
func (n *ToolNode) WithPolicy(policy ToolErrorPolicy) *ToolNode {
	n.policy = policy
	return n
}

// WithLogger sets the logger and returns the node.
func (n *ToolNode) WithLogger(logger log.Logger) *ToolNode {
	n.logger = logger
	return n
}

// Invoke runs every pending tool call sequentially, in request order, and
// returns an update holding one tool message per call.
func (n *ToolNode) Invoke(ctx context.Context, state graph.MessagesState) (graph.MessagesState, error) {
	last, ok := state.LastMessage()
	if !ok || last.Role != llms.ChatMessageTypeAI {
		return graph.MessagesState{}, fmt.Errorf("%w: last message is not an AI message", ErrNoPendingToolCalls)
	}

	calls := graph.PendingToolCalls(state.Messages)
	if len(calls) == 0 {
		return graph.MessagesState{}, ErrNoPendingToolCalls
	}

	results := make([]llms.MessageContent, 0, len(calls))
	for _, tc := range calls {
		if err := ctx.Err(); err != nil {
			return graph.MessagesState{}, err
		}

		inv := tool.InvocationFromCall(tc)
		n.logger.Debug("dispatching tool %s (call %s)", inv.Tool, inv.CallID)

		content, err := n.executor.Execute(ctx, inv)
		if err != nil {
			if n.policy == ToolErrorAbort {
				return graph.MessagesState{}, err
			}
			n.logger.Warn("tool %s failed, reporting to model: %v", inv.Tool, err)
			content = fmt.Sprintf("Error: %v", err)
		}

		results = append(results, llms.MessageContent{
			Role: llms.ChatMessageTypeTool,
			Parts: []llms.ContentPart{
				llms.ToolCallResponse{
					ToolCallID: tc.ID,
					Name:       inv.Tool,
					Content:    content,
				},
			},
		})
	}

	return graph.MessagesState{Messages: results}, nil
}
