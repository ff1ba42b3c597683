package prebuilt

import (
	"context"
	"errors"
	"sync"

	"github.com/tmc/langchaingo/llms"
)

// MockLLM replays scripted responses in order and records every request.
type MockLLM struct {
	mu        sync.Mutex
	responses []*llms.ContentResponse
	callCount int
	messages  [][]llms.MessageContent
	options   []llms.CallOptions
}

func (m *MockLLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var opts llms.CallOptions
	for _, opt := range options {
		opt(&opts)
	}
	m.messages = append(m.messages, append([]llms.MessageContent(nil), messages...))
	m.options = append(m.options, opts)

	if m.callCount >= len(m.responses) {
		return nil, errors.New("no more responses")
	}
	resp := m.responses[m.callCount]
	m.callCount++
	return resp, nil
}

func (m *MockLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return "", nil
}

func (m *MockLLM) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// StructuredMockLLM answers forced function calls. The handler receives the
// forced function name and the prompt text and returns the arguments.
type StructuredMockLLM struct {
	mu      sync.Mutex
	handler func(ctx context.Context, function, prompt string) (string, error)
	calls   map[string]int
}

func newStructuredMock(handler func(ctx context.Context, function, prompt string) (string, error)) *StructuredMockLLM {
	return &StructuredMockLLM{handler: handler, calls: make(map[string]int)}
}

func (m *StructuredMockLLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	var opts llms.CallOptions
	for _, opt := range options {
		opt(&opts)
	}

	function := ""
	if choice, ok := opts.ToolChoice.(llms.ToolChoice); ok && choice.Function != nil {
		function = choice.Function.Name
	}

	prompt := ""
	if len(messages) > 0 {
		for _, part := range messages[len(messages)-1].Parts {
			if text, ok := part.(llms.TextContent); ok {
				prompt += text.Text
			}
		}
	}

	m.mu.Lock()
	m.calls[function]++
	m.mu.Unlock()

	args, err := m.handler(ctx, function, prompt)
	if err != nil {
		return nil, err
	}
	return toolResponse(call("call_"+function, function, args)), nil
}

func (m *StructuredMockLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return "", nil
}

func (m *StructuredMockLLM) count(function string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[function]
}

func textResponse(content string) *llms.ContentResponse {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: content}}}
}

func toolResponse(calls ...llms.ToolCall) *llms.ContentResponse {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{ToolCalls: calls}}}
}

func call(id, name, args string) llms.ToolCall {
	return llms.ToolCall{
		ID:           id,
		Type:         "function",
		FunctionCall: &llms.FunctionCall{Name: name, Arguments: args},
	}
}

func aiToolCalls(calls ...llms.ToolCall) llms.MessageContent {
	parts := make([]llms.ContentPart, len(calls))
	for i, c := range calls {
		parts[i] = c
	}
	return llms.MessageContent{Role: llms.ChatMessageTypeAI, Parts: parts}
}

func human(text string) llms.MessageContent {
	return llms.TextParts(llms.ChatMessageTypeHuman, text)
}
