package prebuilt

import (
	"github.com/smallnest/graphpatterns/graph"
	"github.com/smallnest/graphpatterns/log"
)

// GraphOption configures any prebuilt graph. It is accepted by
// CreateToolCallingAgent, CreateToolRouter and CreateJokeMapReduce.
type GraphOption func(*graphOptions)

type graphOptions struct {
	logger log.Logger
	tracer *graph.Tracer
}

func defaultGraphOptions() graphOptions {
	return graphOptions{logger: log.GetDefaultLogger()}
}

func (f GraphOption) applyAgent(o *agentOptions) { f(&o.graphOptions) }

func (f GraphOption) applyMapReduce(o *mapReduceOptions) { f(&o.graphOptions) }

// WithLogger sets the logger of the graph and its tool node.
func WithLogger(logger log.Logger) GraphOption {
	return func(o *graphOptions) {
		o.logger = logger
	}
}

// WithTracer attaches a tracer to the compiled graph.
func WithTracer(tracer *graph.Tracer) GraphOption {
	return func(o *graphOptions) {
		o.tracer = tracer
	}
}

func compile[S any](workflow *graph.StateGraph[S], o *graphOptions) (*graph.StateRunnable[S], error) {
	runnable, err := workflow.Compile()
	if err != nil {
		return nil, err
	}
	runnable.SetLogger(o.logger)
	if o.tracer != nil {
		runnable.SetTracer(o.tracer)
	}
	return runnable, nil
}
