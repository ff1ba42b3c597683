package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tmc/langchaingo/llms"

	"github.com/smallnest/graphpatterns/prebuilt"
)

func TestFormatMessage(t *testing.T) {
	ai := llms.MessageContent{
		Role: llms.ChatMessageTypeAI,
		Parts: []llms.ContentPart{
			llms.TextPart("computing"),
			llms.ToolCall{ID: "call_1", FunctionCall: &llms.FunctionCall{Name: "multiply", Arguments: `{"a":4,"b":5}`}},
		},
	}
	assert.Equal(t, "computing\n-> multiply({\"a\":4,\"b\":5}) [call_1]", formatMessage(ai))

	toolMsg := llms.MessageContent{
		Role:  llms.ChatMessageTypeTool,
		Parts: []llms.ContentPart{llms.ToolCallResponse{ToolCallID: "call_1", Name: "multiply", Content: "20"}},
	}
	assert.Equal(t, "multiply [call_1]: 20", formatMessage(toolMsg))
}

func TestRenderTranscript(t *testing.T) {
	var buf bytes.Buffer
	renderTranscript(&buf, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, "What is 4 times 5?"),
		llms.TextParts(llms.ChatMessageTypeAI, "20"),
	})

	out := buf.String()
	assert.Contains(t, out, "Human")
	assert.Contains(t, out, "What is 4 times 5?")
	assert.Contains(t, out, "AI")
	assert.Contains(t, out, "20")
}

func TestRenderJokes(t *testing.T) {
	var buf bytes.Buffer
	renderJokes(&buf, prebuilt.JokesState{
		Topic:            "animals",
		Subjects:         []string{"cats", "dogs"},
		Jokes:            []string{"cat joke", "dog joke"},
		BestSelectedJoke: "dog joke",
	})

	out := buf.String()
	assert.Contains(t, out, "Topic: animals")
	assert.Contains(t, out, "cats, dogs")
	assert.Contains(t, out, "1. dog joke")
}

func TestDrawGraph(t *testing.T) {
	out, err := drawGraph("agent", "ascii")
	assert.NoError(t, err)
	assert.Contains(t, out, "assistant")
	assert.Contains(t, out, "(?)")

	out, err = drawGraph("jokes", "mermaid")
	assert.NoError(t, err)
	assert.Contains(t, out, "generate_topics ==>|Send|")
	assert.Contains(t, out, "generate_joke --> best_joke")

	out, err = drawGraph("router", "mermaid")
	assert.NoError(t, err)
	assert.Contains(t, out, "tools --> END")

	_, err = drawGraph("nope", "ascii")
	assert.Error(t, err)
	_, err = drawGraph("agent", "svg")
	assert.Error(t, err)
}
