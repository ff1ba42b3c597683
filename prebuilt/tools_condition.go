package prebuilt

import (
	"context"

	"github.com/tmc/langchaingo/llms"

	"github.com/smallnest/graphpatterns/graph"
)

// ToolsNodeName is the node ToolsCondition routes to when tools are requested.
const ToolsNodeName = "tools"

// Route is the routing decision taken after a model call.
type Route int

const (
	// RouteEnd terminates the loop.
	RouteEnd Route = iota
	// RouteTools continues to tool dispatch.
	RouteTools
)

func (r Route) String() string {
	if r == RouteTools {
		return "tools"
	}
	return "end"
}

// RouteMessage returns RouteTools iff msg carries at least one tool call.
func RouteMessage(msg llms.MessageContent) Route {
	for _, part := range msg.Parts {
		if _, ok := part.(llms.ToolCall); ok {
			return RouteTools
		}
	}
	return RouteEnd
}

// ToolsCondition is a conditional edge that routes to ToolsNodeName when the
// latest message requests tools and to graph.END otherwise.
func ToolsCondition(_ context.Context, state graph.MessagesState) string {
	last, ok := state.LastMessage()
	if !ok || RouteMessage(last) == RouteEnd {
		return graph.END
	}
	return ToolsNodeName
}
