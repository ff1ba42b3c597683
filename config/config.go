// Package config loads graphpatterns settings from a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// API types accepted in ModelConfig.APIType.
const (
	APITypeOpenAI  = "openai"
	APITypeAzure   = "azure"
	APITypeAzureAD = "azure_ad"
)

// Tool error policies accepted in AgentConfig.ToolErrorPolicy.
const (
	ToolErrorAbort  = "abort"
	ToolErrorReport = "report"
)

// Config is the top-level configuration.
type Config struct {
	Model     ModelConfig     `yaml:"model"`
	Log       LogConfig       `yaml:"log"`
	Agent     AgentConfig     `yaml:"agent"`
	MapReduce MapReduceConfig `yaml:"map_reduce"`
}

// ModelConfig describes the hosted chat model.
type ModelConfig struct {
	Endpoint    string        `yaml:"endpoint"`
	Deployment  string        `yaml:"deployment"`
	APIVersion  string        `yaml:"api_version"`
	APIType     string        `yaml:"api_type"`
	Model       string        `yaml:"model"`
	Token       string        `yaml:"token"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// LogConfig selects the log level.
type LogConfig struct {
	Level string `yaml:"level"`
}

// AgentConfig tunes the tool-calling loop.
type AgentConfig struct {
	// MaxIterations caps model calls per run; 0 leaves the loop unbounded.
	MaxIterations   int    `yaml:"max_iterations"`
	ToolErrorPolicy string `yaml:"tool_error_policy"`
}

// MapReduceConfig tunes the fan-out graph.
type MapReduceConfig struct {
	// MaxConcurrency bounds parallel mapper calls; 0 means one goroutine per sub-task.
	MaxConcurrency int `yaml:"max_concurrency"`

	// Temperature replaces model.temperature for the joke calls.
	Temperature float64 `yaml:"temperature"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			APIType:     APITypeOpenAI,
			Model:       "gpt-4o",
			Temperature: 0,
			Timeout:     120 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
		Agent: AgentConfig{
			ToolErrorPolicy: ToolErrorAbort,
		},
		MapReduce: MapReduceConfig{
			Temperature: 0.7,
		},
	}
}

// Load reads the YAML file at path, if path is not empty, on top of Default
// and then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	set := func(dst *string, keys ...string) {
		for _, key := range keys {
			if v, ok := lookup(key); ok && v != "" {
				*dst = v
				return
			}
		}
	}

	set(&c.Model.Endpoint, "AZURE_ENDPOINT")
	set(&c.Model.Deployment, "AZURE_DEPLOYMENT")
	set(&c.Model.APIVersion, "API_VERSION")
	set(&c.Model.APIType, "OPENAI_API_TYPE")
	set(&c.Model.Model, "MODEL")
	set(&c.Model.Token, "AZURE_OPENAI_TOKEN", "OPENAI_API_KEY")
	set(&c.Log.Level, "GRAPHPATTERNS_LOG_LEVEL")

	for key, dst := range map[string]*float64{
		"MODEL_TEMPERATURE":      &c.Model.Temperature,
		"MAP_REDUCE_TEMPERATURE": &c.MapReduce.Temperature,
	} {
		if v, ok := lookup(key); ok && v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = f
		}
	}
	if v, ok := lookup("MODEL_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("MODEL_TIMEOUT: %w", err)
		}
		c.Model.Timeout = d
	}
	return nil
}

// Validate reports configuration errors.
func (c *Config) Validate() error {
	var errs []error

	switch c.Model.APIType {
	case APITypeOpenAI:
	case APITypeAzure, APITypeAzureAD:
		if c.Model.Endpoint == "" {
			errs = append(errs, errors.New("model.endpoint is required for azure api types"))
		}
		if c.Model.APIVersion == "" {
			errs = append(errs, errors.New("model.api_version is required for azure api types"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown model.api_type %q", c.Model.APIType))
	}
	if c.Model.Model == "" && c.Model.Deployment == "" {
		errs = append(errs, errors.New("model.model or model.deployment is required"))
	}
	if c.Model.Timeout < 0 {
		errs = append(errs, errors.New("model.timeout must not be negative"))
	}

	switch c.Agent.ToolErrorPolicy {
	case "", ToolErrorAbort, ToolErrorReport:
	default:
		errs = append(errs, fmt.Errorf("unknown agent.tool_error_policy %q", c.Agent.ToolErrorPolicy))
	}
	if c.Agent.MaxIterations < 0 {
		errs = append(errs, errors.New("agent.max_iterations must not be negative"))
	}
	if c.MapReduce.MaxConcurrency < 0 {
		errs = append(errs, errors.New("map_reduce.max_concurrency must not be negative"))
	}
	if c.MapReduce.Temperature < 0 || c.MapReduce.Temperature > 2 {
		errs = append(errs, fmt.Errorf("map_reduce.temperature %v is outside [0, 2]", c.MapReduce.Temperature))
	}

	return errors.Join(errs...)
}
