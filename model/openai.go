package model

import (
	"fmt"
	"net/http"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/smallnest/graphpatterns/config"
)

// FromConfig builds the OpenAI-compatible chat client described by cfg. The
// returned handle is meant to be created once and shared by every Caller.
func FromConfig(cfg config.ModelConfig) (llms.Model, error) {
	name := cfg.Model
	if cfg.Deployment != "" {
		name = cfg.Deployment
	}

	opts := []openai.Option{
		openai.WithModel(name),
	}
	if cfg.Token != "" {
		opts = append(opts, openai.WithToken(cfg.Token))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, openai.WithBaseURL(cfg.Endpoint))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, openai.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	}

	switch cfg.APIType {
	case "", config.APITypeOpenAI:
	case config.APITypeAzure:
		opts = append(opts, openai.WithAPIType(openai.APITypeAzure), openai.WithAPIVersion(cfg.APIVersion))
	case config.APITypeAzureAD:
		opts = append(opts, openai.WithAPIType(openai.APITypeAzureAD), openai.WithAPIVersion(cfg.APIVersion))
	default:
		return nil, fmt.Errorf("unsupported api type %q", cfg.APIType)
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create openai client: %w", err)
	}
	return llm, nil
}

// NewCallerFromConfig builds the client and wraps it in a Caller using the
// configured temperature and timeout.
func NewCallerFromConfig(cfg config.ModelConfig, opts ...CallerOption) (*Caller, error) {
	llm, err := FromConfig(cfg)
	if err != nil {
		return nil, err
	}
	base := []CallerOption{WithTemperature(cfg.Temperature)}
	if cfg.Timeout > 0 {
		base = append(base, WithTimeout(cfg.Timeout))
	}
	return NewCaller(llm, append(base, opts...)...), nil
}
