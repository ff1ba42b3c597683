// Package model wraps a hosted chat model behind a single-call interface and
// adds schema-constrained structured output.
package model

import (
	"context"
	"errors"
	"time"

	"github.com/tmc/langchaingo/llms"

	"github.com/smallnest/graphpatterns/log"
)

// Caller invokes the model exactly once per Generate call. It holds no
// conversation state; callers pass the full history each time.
type Caller struct {
	llm         llms.Model
	temperature *float64
	timeout     time.Duration
	logger      log.Logger
}

// CallerOption configures a Caller.
type CallerOption func(*Caller)

// WithTemperature sets the sampling temperature for every call.
func WithTemperature(t float64) CallerOption {
	return func(c *Caller) {
		c.temperature = &t
	}
}

// WithTimeout bounds each model call. Zero means no bound beyond ctx.
func WithTimeout(d time.Duration) CallerOption {
	return func(c *Caller) {
		c.timeout = d
	}
}

// WithLogger sets the logger. The package default logger is used otherwise.
func WithLogger(logger log.Logger) CallerOption {
	return func(c *Caller) {
		c.logger = logger
	}
}

// NewCaller creates a Caller around llm.
func NewCaller(llm llms.Model, opts ...CallerOption) *Caller {
	c := &Caller{
		llm:    llm,
		logger: log.GetDefaultLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate sends messages to the model with the given tools bound and returns
// the single assistant message it produced. The message carries text, tool
// call requests or both.
func (c *Caller) Generate(ctx context.Context, messages []llms.MessageContent, tools []llms.Tool) (llms.MessageContent, error) {
	var opts []llms.CallOption
	if len(tools) > 0 {
		opts = append(opts, llms.WithTools(tools), llms.WithToolChoice("auto"))
	}

	choice, err := c.generate(ctx, messages, opts...)
	if err != nil {
		return llms.MessageContent{}, err
	}

	msg := llms.MessageContent{Role: llms.ChatMessageTypeAI}
	if choice.Content != "" {
		msg.Parts = append(msg.Parts, llms.TextPart(choice.Content))
	}
	for _, tc := range choice.ToolCalls {
		msg.Parts = append(msg.Parts, tc)
	}
	if len(msg.Parts) == 0 {
		return llms.MessageContent{}, &CallError{Err: errors.New("empty response from model")}
	}

	c.logger.Debug("model replied with %d tool call(s)", len(choice.ToolCalls))
	return msg, nil
}

// generate performs the raw call and returns the first choice.
func (c *Caller) generate(ctx context.Context, messages []llms.MessageContent, opts ...llms.CallOption) (*llms.ContentChoice, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if c.temperature != nil {
		opts = append(opts, llms.WithTemperature(*c.temperature))
	}

	c.logger.Debug("calling model with %d message(s)", len(messages))
	resp, err := c.llm.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return nil, &CallError{Err: err}
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return nil, &CallError{Err: errors.New("response has no choices")}
	}
	return resp.Choices[0], nil
}
