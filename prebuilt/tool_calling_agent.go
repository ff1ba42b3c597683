package prebuilt

import (
	"context"

	"github.com/tmc/langchaingo/llms"

	"github.com/smallnest/graphpatterns/graph"
	"github.com/smallnest/graphpatterns/model"
	"github.com/smallnest/graphpatterns/tool"
)

const (
	// AssistantNodeName is the model node of the tool-calling agent.
	AssistantNodeName = "assistant"

	// ToolCallingLLMNodeName is the model node of the tool router.
	ToolCallingLLMNodeName = "tool_calling_llm"
)

// ArithmeticSystemPrompt is the instruction used with the arithmetic tools.
const ArithmeticSystemPrompt = "You are a helpful assistant tasked with writing performing arithmetic on a set of inputs."

// AgentOption configures CreateToolCallingAgent and CreateToolRouter. Every
// GraphOption is also an AgentOption.
type AgentOption interface {
	applyAgent(*agentOptions)
}

type agentOptionFunc func(*agentOptions)

func (f agentOptionFunc) applyAgent(o *agentOptions) { f(o) }

type agentOptions struct {
	graphOptions
	systemMessage string
	maxIterations int
	policy        ToolErrorPolicy
}

// WithSystemMessage prefixes every model call with a fixed system
// instruction. The instruction is not stored in the conversation.
func WithSystemMessage(content string) AgentOption {
	return agentOptionFunc(func(o *agentOptions) {
		o.systemMessage = content
	})
}

// WithMaxIterations caps the number of model calls per run. A run that would
// call the model more often fails with graph.ErrStepLimitExceeded. Zero, the
// default, leaves the loop unbounded. The router calls the model once, so any
// positive cap holds for it.
func WithMaxIterations(n int) AgentOption {
	return agentOptionFunc(func(o *agentOptions) {
		o.maxIterations = n
	})
}

// WithToolErrorPolicy selects how tool failures are handled.
func WithToolErrorPolicy(policy ToolErrorPolicy) AgentOption {
	return agentOptionFunc(func(o *agentOptions) {
		o.policy = policy
	})
}

func newAgentOptions(opts []AgentOption) *agentOptions {
	o := &agentOptions{
		graphOptions: defaultGraphOptions(),
		policy:       ToolErrorAbort,
	}
	for _, opt := range opts {
		opt.applyAgent(o)
	}
	return o
}

// CreateToolCallingAgent builds the tool-calling loop:
//
//	assistant --ToolsCondition--> tools --> assistant
//	          \--> END
//
// The assistant calls the model with every tool bound; the loop ends as soon
// as the model answers without requesting a tool.
func CreateToolCallingAgent(caller *model.Caller, executor *tool.Executor, opts ...AgentOption) (*graph.StateRunnable[graph.MessagesState], error) {
	o := newAgentOptions(opts)

	workflow := newMessagesGraph(caller, executor, AssistantNodeName, o)
	workflow.AddEdge(ToolsNodeName, AssistantNodeName)

	return compile(workflow, &o.graphOptions)
}

// CreateToolRouter builds a graph that calls a tool at most once:
//
//	tool_calling_llm --ToolsCondition--> tools --> END
//	                 \--> END
func CreateToolRouter(caller *model.Caller, executor *tool.Executor, opts ...AgentOption) (*graph.StateRunnable[graph.MessagesState], error) {
	o := newAgentOptions(opts)

	workflow := newMessagesGraph(caller, executor, ToolCallingLLMNodeName, o)
	workflow.AddEdge(ToolsNodeName, graph.END)

	return compile(workflow, &o.graphOptions)
}

func newMessagesGraph(caller *model.Caller, executor *tool.Executor, modelNode string, o *agentOptions) *graph.StateGraph[graph.MessagesState] {
	workflow := graph.NewStateGraph[graph.MessagesState]()
	workflow.SetSchema(graph.NewMessagesSchema())

	workflow.AddNode(modelNode, "Calls the model with the bound tools", modelCallNode(caller, executor.Definitions(), o.systemMessage))
	workflow.AddNode(ToolsNodeName, "Runs the requested tools",
		NewToolNode(executor).WithPolicy(o.policy).WithLogger(o.logger).Invoke)

	workflow.SetEntryPoint(modelNode)
	workflow.AddConditionalEdge(modelNode, ToolsCondition)
	if o.maxIterations > 0 {
		// One model step and one tool step per iteration.
		workflow.SetMaxSteps(2 * o.maxIterations)
	}
	return workflow
}

func modelCallNode(caller *model.Caller, tools []llms.Tool, systemMessage string) func(context.Context, graph.MessagesState) (graph.MessagesState, error) {
	return func(ctx context.Context, state graph.MessagesState) (graph.MessagesState, error) {
		messages := state.Messages
		if systemMessage != "" {
			messages = make([]llms.MessageContent, 0, len(state.Messages)+1)
			messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, systemMessage))
			messages = append(messages, state.Messages...)
		}

		reply, err := caller.Generate(ctx, messages, tools)
		if err != nil {
			return graph.MessagesState{}, err
		}
		return graph.MessagesState{Messages: []llms.MessageContent{reply}}, nil
	}
}
