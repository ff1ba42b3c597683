package graph

import (
	"github.com/tmc/langchaingo/llms"
)

// MessagesState is the state of chat graphs: an append-only conversation.
type MessagesState struct {
	Messages []llms.MessageContent `json:"messages"`
}

// NewMessagesSchema returns a schema that appends the messages of every
// update to the conversation. Messages are never reordered or removed.
func NewMessagesSchema() *StructSchema[MessagesState] {
	return NewStructSchema(MessagesState{}, func(current, update MessagesState) (MessagesState, error) {
		current.Messages = AppendSlice(current.Messages, update.Messages)
		return current, nil
	})
}

// LastMessage returns the latest message and whether there is one.
func (s MessagesState) LastMessage() (llms.MessageContent, bool) {
	if len(s.Messages) == 0 {
		return llms.MessageContent{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// ToolCalls returns the tool-call requests carried by msg.
func ToolCalls(msg llms.MessageContent) []llms.ToolCall {
	var calls []llms.ToolCall
	for _, part := range msg.Parts {
		if tc, ok := part.(llms.ToolCall); ok {
			calls = append(calls, tc)
		}
	}
	return calls
}

// PendingToolCalls returns the tool calls of the latest AI message that have
// not been answered by a tool message yet, in request order.
func PendingToolCalls(messages []llms.MessageContent) []llms.ToolCall {
	aiIdx := -1
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == llms.ChatMessageTypeAI {
			aiIdx = i
			break
		}
	}
	if aiIdx < 0 {
		return nil
	}

	answered := make(map[string]bool)
	for _, msg := range messages[aiIdx+1:] {
		for _, part := range msg.Parts {
			if resp, ok := part.(llms.ToolCallResponse); ok {
				answered[resp.ToolCallID] = true
			}
		}
	}

	var pending []llms.ToolCall
	for _, tc := range ToolCalls(messages[aiIdx]) {
		if !answered[tc.ID] {
			pending = append(pending, tc)
		}
	}
	return pending
}
