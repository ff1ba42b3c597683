package prebuilt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/smallnest/graphpatterns/graph"
	"github.com/smallnest/graphpatterns/log"
	"github.com/smallnest/graphpatterns/model"
	"github.com/smallnest/graphpatterns/tool"
)

func newArithmeticAgent(t *testing.T, mock llms.Model, opts ...AgentOption) *graph.StateRunnable[graph.MessagesState] {
	t.Helper()
	opts = append([]AgentOption{WithLogger(&log.NoOpLogger{})}, opts...)
	agent, err := CreateToolCallingAgent(model.NewCaller(mock), tool.NewExecutor(tool.Arithmetic()...), opts...)
	require.NoError(t, err)
	return agent
}

func TestToolCallingAgent_Arithmetic(t *testing.T) {
	mock := &MockLLM{responses: []*llms.ContentResponse{
		toolResponse(call("call_1", "multiply", `{"a":4,"b":5}`)),
		toolResponse(call("call_2", "add", `{"a":3,"b":20}`)),
		textResponse("3 plus 4 times 5 is 23."),
	}}
	agent := newArithmeticAgent(t, mock, WithSystemMessage(ArithmeticSystemPrompt))

	final, err := agent.Invoke(context.Background(), graph.MessagesState{
		Messages: []llms.MessageContent{human("What is 3 plus 4 times 5?")},
	})
	require.NoError(t, err)

	require.Len(t, final.Messages, 6)
	roles := make([]llms.ChatMessageType, len(final.Messages))
	for i, m := range final.Messages {
		roles[i] = m.Role
	}
	assert.Equal(t, []llms.ChatMessageType{
		llms.ChatMessageTypeHuman,
		llms.ChatMessageTypeAI,
		llms.ChatMessageTypeTool,
		llms.ChatMessageTypeAI,
		llms.ChatMessageTypeTool,
		llms.ChatMessageTypeAI,
	}, roles)

	assert.Equal(t, llms.ToolCallResponse{ToolCallID: "call_1", Name: "multiply", Content: "20"}, final.Messages[2].Parts[0])
	assert.Equal(t, llms.ToolCallResponse{ToolCallID: "call_2", Name: "add", Content: "23"}, final.Messages[4].Parts[0])
	assert.Equal(t, llms.TextContent{Text: "3 plus 4 times 5 is 23."}, final.Messages[5].Parts[0])

	// The system instruction is sent on every call but never stored.
	require.Equal(t, 3, mock.calls())
	for i, sent := range mock.messages {
		require.NotEmpty(t, sent)
		assert.Equal(t, llms.ChatMessageTypeSystem, sent[0].Role, "call %d", i)
		assert.Len(t, sent, 1+1+2*i, "call %d", i)
		assert.Len(t, mock.options[i].Tools, 3)
	}
	for _, m := range final.Messages {
		assert.NotEqual(t, llms.ChatMessageTypeSystem, m.Role)
	}
}

func TestToolCallingAgent_EveryCallAnsweredBeforeNextModelCall(t *testing.T) {
	mock := &MockLLM{responses: []*llms.ContentResponse{
		toolResponse(
			call("call_1", "multiply", `{"a":2,"b":3}`),
			call("call_2", "divide", `{"a":9,"b":3}`),
		),
		textResponse("6 and 3"),
	}}
	agent := newArithmeticAgent(t, mock)

	_, err := agent.Invoke(context.Background(), graph.MessagesState{
		Messages: []llms.MessageContent{human("2*3 and 9/3?")},
	})
	require.NoError(t, err)

	require.Len(t, mock.messages, 2)
	assert.Empty(t, graph.PendingToolCalls(mock.messages[1]))

	sent := mock.messages[1]
	require.Len(t, sent, 4)
	assert.Equal(t, "call_1", sent[2].Parts[0].(llms.ToolCallResponse).ToolCallID)
	assert.Equal(t, "call_2", sent[3].Parts[0].(llms.ToolCallResponse).ToolCallID)
	assert.Equal(t, "3", sent[3].Parts[0].(llms.ToolCallResponse).Content)
}

func TestToolCallingAgent_DirectAnswer(t *testing.T) {
	mock := &MockLLM{responses: []*llms.ContentResponse{textResponse("hello")}}
	agent := newArithmeticAgent(t, mock)

	final, err := agent.Invoke(context.Background(), graph.MessagesState{
		Messages: []llms.MessageContent{human("hi")},
	})
	require.NoError(t, err)
	assert.Len(t, final.Messages, 2)
	assert.Equal(t, 1, mock.calls())
	// No system message configured.
	assert.Equal(t, llms.ChatMessageTypeHuman, mock.messages[0][0].Role)
}

func TestToolCallingAgent_MaxIterations(t *testing.T) {
	var script []*llms.ContentResponse
	for range 10 {
		script = append(script, toolResponse(call("c", "add", `{"a":1,"b":1}`)))
	}
	mock := &MockLLM{responses: script}
	agent := newArithmeticAgent(t, mock, WithMaxIterations(2))

	_, err := agent.Invoke(context.Background(), graph.MessagesState{
		Messages: []llms.MessageContent{human("loop")},
	})
	assert.ErrorIs(t, err, graph.ErrStepLimitExceeded)
	assert.Equal(t, 2, mock.calls())
}

func TestToolCallingAgent_ToolErrorAborts(t *testing.T) {
	mock := &MockLLM{responses: []*llms.ContentResponse{
		toolResponse(call("call_1", "divide", `{"a":1,"b":0}`)),
		textResponse("unreachable"),
	}}
	agent := newArithmeticAgent(t, mock)

	_, err := agent.Invoke(context.Background(), graph.MessagesState{
		Messages: []llms.MessageContent{human("1/0")},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, tool.ErrDivisionByZero)

	var execErr *tool.ToolExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "call_1", execErr.CallID)
	assert.Equal(t, 1, mock.calls())
}

func TestToolCallingAgent_ToolErrorReported(t *testing.T) {
	mock := &MockLLM{responses: []*llms.ContentResponse{
		toolResponse(call("call_1", "divide", `{"a":1,"b":0}`)),
		textResponse("Division by zero is undefined."),
	}}
	agent := newArithmeticAgent(t, mock, WithToolErrorPolicy(ToolErrorReport))

	final, err := agent.Invoke(context.Background(), graph.MessagesState{
		Messages: []llms.MessageContent{human("1/0")},
	})
	require.NoError(t, err)
	require.Len(t, final.Messages, 4)

	resp := final.Messages[2].Parts[0].(llms.ToolCallResponse)
	assert.Equal(t, "call_1", resp.ToolCallID)
	assert.Contains(t, resp.Content, "Error: ")
}

func TestToolCallingAgent_ModelError(t *testing.T) {
	agent := newArithmeticAgent(t, &MockLLM{})

	_, err := agent.Invoke(context.Background(), graph.MessagesState{
		Messages: []llms.MessageContent{human("hi")},
	})
	assert.ErrorIs(t, err, model.ErrModelCall)
	assert.Contains(t, err.Error(), "error in node "+AssistantNodeName)
}

func TestToolCallingAgent_Tracing(t *testing.T) {
	mock := &MockLLM{responses: []*llms.ContentResponse{
		toolResponse(call("call_1", "add", `{"a":1,"b":2}`)),
		textResponse("3"),
	}}
	tracer := graph.NewTracer()
	agent := newArithmeticAgent(t, mock, WithTracer(tracer))

	_, err := agent.Invoke(context.Background(), graph.MessagesState{
		Messages: []llms.MessageContent{human("1+2")},
	})
	require.NoError(t, err)

	nodes := map[string]int{}
	for _, span := range tracer.GetSpans() {
		if span.Event == graph.TraceEventNodeEnd {
			nodes[span.NodeName]++
		}
	}
	assert.Equal(t, map[string]int{AssistantNodeName: 2, ToolsNodeName: 1}, nodes)
}

func TestToolRouter(t *testing.T) {
	t.Run("tool then end", func(t *testing.T) {
		mock := &MockLLM{responses: []*llms.ContentResponse{
			toolResponse(call("call_1", "multiply", `{"a":2,"b":3}`)),
		}}
		router, err := CreateToolRouter(model.NewCaller(mock), tool.NewExecutor(tool.Arithmetic()...), WithLogger(&log.NoOpLogger{}))
		require.NoError(t, err)

		final, err := router.Invoke(context.Background(), graph.MessagesState{
			Messages: []llms.MessageContent{human("Multiply 2 and 3")},
		})
		require.NoError(t, err)
		require.Len(t, final.Messages, 3)
		assert.Equal(t, "6", final.Messages[2].Parts[0].(llms.ToolCallResponse).Content)
		assert.Equal(t, 1, mock.calls())
	})

	t.Run("plain answer", func(t *testing.T) {
		mock := &MockLLM{responses: []*llms.ContentResponse{textResponse("Hello!")}}
		router, err := CreateToolRouter(model.NewCaller(mock), tool.NewExecutor(tool.Arithmetic()...), WithLogger(&log.NoOpLogger{}))
		require.NoError(t, err)

		final, err := router.Invoke(context.Background(), graph.MessagesState{
			Messages: []llms.MessageContent{human("Hello")},
		})
		require.NoError(t, err)
		require.Len(t, final.Messages, 2)
		assert.Equal(t, llms.ChatMessageTypeAI, final.Messages[1].Role)
	})
}

func TestToolRouter_AgentOptions(t *testing.T) {
	mock := &MockLLM{responses: []*llms.ContentResponse{
		toolResponse(call("call_1", "divide", `{"a":1,"b":0}`)),
	}}
	router, err := CreateToolRouter(model.NewCaller(mock), tool.NewExecutor(tool.Arithmetic()...),
		WithLogger(&log.NoOpLogger{}),
		WithSystemMessage(ArithmeticSystemPrompt),
		WithToolErrorPolicy(ToolErrorReport),
		WithMaxIterations(1),
	)
	require.NoError(t, err)

	final, err := router.Invoke(context.Background(), graph.MessagesState{
		Messages: []llms.MessageContent{human("1/0")},
	})
	require.NoError(t, err)
	require.Len(t, final.Messages, 3)
	assert.Contains(t, final.Messages[2].Parts[0].(llms.ToolCallResponse).Content, "Error: ")
	assert.Equal(t, llms.ChatMessageTypeSystem, mock.messages[0][0].Role)
	assert.Equal(t, 1, mock.calls())
}

