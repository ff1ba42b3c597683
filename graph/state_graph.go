package graph

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/smallnest/graphpatterns/log"
)

// StateGraph represents a generic state-based graph with compile-time type safety.
// The type parameter S represents the state type, which is typically a struct.
//
// Example usage:
//
//	type MyState struct {
//	    Count int
//	    Name  string
//	}
//
//	g := graph.NewStateGraph[MyState]()
//	g.AddNode("increment", "Increment counter", func(ctx context.Context, state MyState) (MyState, error) {
//	    return MyState{Count: state.Count + 1}, nil
//	})
type StateGraph[S any] struct {
	// nodes is a map of node names to their corresponding Node objects
	nodes map[string]TypedNode[S]

	// edges is a slice of Edge objects representing the connections between nodes
	edges []Edge

	// conditionalEdges contains a map between "From" node, while "To" node is derived based on the condition
	conditionalEdges map[string]func(ctx context.Context, state S) string

	// fanOutEdges map a node to a function spawning one task per Send
	fanOutEdges map[string]func(ctx context.Context, state S) []Send

	// entryPoint is the name of the entry point node in the graph
	entryPoint string

	// retryPolicy defines retry behavior for failed nodes
	retryPolicy *RetryPolicy

	// stateMerger is an optional function to merge states from parallel execution
	stateMerger TypedStateMerger[S]

	// Schema defines the state structure and update logic
	Schema StateSchemaTyped[S]

	// maxSteps bounds the number of supersteps per run; 0 means unbounded
	maxSteps int

	// maxConcurrency bounds the tasks running at once within a superstep; 0 means unbounded
	maxConcurrency int
}

// NewStateGraph creates a new instance of StateGraph with type safety.
func NewStateGraph[S any]() *StateGraph[S] {
	return &StateGraph[S]{
		nodes:            make(map[string]TypedNode[S]),
		conditionalEdges: make(map[string]func(ctx context.Context, state S) string),
		fanOutEdges:      make(map[string]func(ctx context.Context, state S) []Send),
	}
}

// AddNode adds a new node to the state graph with the given name, description and function.
// The function receives the current state and returns an update that the schema
// merges into the state.
func (g *StateGraph[S]) AddNode(name string, description string, fn func(ctx context.Context, state S) (S, error)) {
	g.nodes[name] = TypedNode[S]{
		Name:        name,
		Description: description,
		Function:    fn,
	}
}

// AddSendNode adds a node that is only reachable through Send. The node sees
// the Send argument of type T and never the graph state.
func AddSendNode[S, T any](g *StateGraph[S], name string, description string, fn func(ctx context.Context, arg T) (S, error)) {
	g.nodes[name] = TypedNode[S]{
		Name:        name,
		Description: description,
		send: func(ctx context.Context, arg any) (S, error) {
			typed, ok := arg.(T)
			if !ok {
				var zero S
				var want T
				return zero, fmt.Errorf("%w: node %s expects %T, got %T", ErrInvalidSendArg, name, want, arg)
			}
			return fn(ctx, typed)
		},
	}
}

// AddEdge adds a new edge to the state graph between the "from" and "to" nodes.
func (g *StateGraph[S]) AddEdge(from, to string) {
	g.edges = append(g.edges, Edge{
		From: from,
		To:   to,
	})
}

// AddConditionalEdge adds a conditional edge where the target node is determined at runtime.
func (g *StateGraph[S]) AddConditionalEdge(from string, condition func(ctx context.Context, state S) string) {
	g.conditionalEdges[from] = condition
}

// AddFanOutEdge adds an edge that spawns one task per returned Send. The number
// of tasks is decided at runtime; all of them run in the same superstep and
// the step completes only when every task has finished.
func (g *StateGraph[S]) AddFanOutEdge(from string, spawn func(ctx context.Context, state S) []Send) {
	g.fanOutEdges[from] = spawn
}

// SetEntryPoint sets the entry point node name for the state graph.
func (g *StateGraph[S]) SetEntryPoint(name string) {
	g.entryPoint = name
}

// SetRetryPolicy sets the retry policy for the graph.
func (g *StateGraph[S]) SetRetryPolicy(policy *RetryPolicy) {
	g.retryPolicy = policy
}

// SetStateMerger sets the state merger function for the state graph.
func (g *StateGraph[S]) SetStateMerger(merger TypedStateMerger[S]) {
	g.stateMerger = merger
}

// SetSchema sets the state schema for the graph.
func (g *StateGraph[S]) SetSchema(schema StateSchemaTyped[S]) {
	g.Schema = schema
}

// SetMaxSteps bounds the number of supersteps of a run. Runs exceeding it fail
// with ErrStepLimitExceeded. Zero disables the bound.
func (g *StateGraph[S]) SetMaxSteps(n int) {
	g.maxSteps = n
}

// SetMaxConcurrency bounds how many tasks of one superstep run at once.
// Zero means no bound.
func (g *StateGraph[S]) SetMaxConcurrency(n int) {
	g.maxConcurrency = n
}

// StateRunnable represents a compiled state graph that can be invoked with type safety.
type StateRunnable[S any] struct {
	graph  *StateGraph[S]
	tracer *Tracer
	logger log.Logger
}

// Compile compiles the state graph and returns a StateRunnable instance.
func (g *StateGraph[S]) Compile() (*StateRunnable[S], error) {
	if g.entryPoint == "" {
		return nil, ErrEntryPointNotSet
	}
	if _, ok := g.nodes[g.entryPoint]; !ok {
		return nil, fmt.Errorf("%w: entry point %s", ErrNodeNotFound, g.entryPoint)
	}

	for _, edge := range g.edges {
		if _, ok := g.nodes[edge.From]; !ok {
			return nil, fmt.Errorf("%w: edge source %s", ErrNodeNotFound, edge.From)
		}
		if _, ok := g.nodes[edge.To]; !ok && edge.To != END {
			return nil, fmt.Errorf("%w: edge target %s", ErrNodeNotFound, edge.To)
		}
	}
	for from := range g.conditionalEdges {
		if _, ok := g.nodes[from]; !ok {
			return nil, fmt.Errorf("%w: conditional edge source %s", ErrNodeNotFound, from)
		}
	}
	for from := range g.fanOutEdges {
		if _, ok := g.nodes[from]; !ok {
			return nil, fmt.Errorf("%w: fan-out edge source %s", ErrNodeNotFound, from)
		}
	}

	return &StateRunnable[S]{
		graph:  g,
		logger: log.GetDefaultLogger(),
	}, nil
}

// SetTracer sets a tracer for observability.
func (r *StateRunnable[S]) SetTracer(tracer *Tracer) {
	r.tracer = tracer
}

// GetTracer returns the current tracer.
func (r *StateRunnable[S]) GetTracer() *Tracer {
	return r.tracer
}

// WithTracer returns a new StateRunnable with the given tracer.
func (r *StateRunnable[S]) WithTracer(tracer *Tracer) *StateRunnable[S] {
	return &StateRunnable[S]{
		graph:  r.graph,
		tracer: tracer,
		logger: r.logger,
	}
}

// SetLogger sets the logger used for step logging.
func (r *StateRunnable[S]) SetLogger(logger log.Logger) {
	r.logger = logger
}

// task is one node execution within a superstep.
type task struct {
	node     string
	arg      any
	fromSend bool
}

// Invoke executes the compiled state graph with the given input state and
// returns the final state once a step produces no further tasks.
func (r *StateRunnable[S]) Invoke(ctx context.Context, initialState S) (S, error) {
	var zero S
	state := initialState

	// If schema is defined, merge initialState into schema's initial state
	if r.graph.Schema != nil {
		var err error
		state, err = r.graph.Schema.Update(r.graph.Schema.Init(), initialState)
		if err != nil {
			return zero, fmt.Errorf("failed to initialize state with schema: %w", err)
		}
	}

	runID := uuid.NewString()

	var graphSpan *TraceSpan
	if r.tracer != nil {
		graphSpan = r.tracer.StartSpan(ctx, TraceEventGraphStart, "graph")
		graphSpan.Metadata["run_id"] = runID
		ctx = ContextWithSpan(ctx, graphSpan)
	}

	finish := func(err error) {
		if graphSpan != nil {
			r.tracer.EndSpan(ctx, graphSpan, err)
		}
	}

	tasks := []task{{node: r.graph.entryPoint}}
	for step := 0; len(tasks) > 0; step++ {
		if r.graph.maxSteps > 0 && step >= r.graph.maxSteps {
			err := fmt.Errorf("%w: %d steps", ErrStepLimitExceeded, r.graph.maxSteps)
			finish(err)
			return zero, err
		}

		r.logger.Debug("run %s step %d: %d task(s)", runID, step, len(tasks))

		updates, err := r.executeTasks(ctx, tasks, state)
		if err != nil {
			finish(err)
			return zero, err
		}

		state, err = r.mergeState(ctx, state, updates)
		if err != nil {
			finish(err)
			return zero, err
		}

		tasks, err = r.nextTasks(ctx, tasks, state)
		if err != nil {
			finish(err)
			return zero, err
		}
	}

	finish(nil)
	return state, nil
}

// executeTasks runs every task of a superstep concurrently and waits for all
// of them. The first failure cancels the remaining tasks.
func (r *StateRunnable[S]) executeTasks(ctx context.Context, tasks []task, state S) ([]S, error) {
	nodes := make([]TypedNode[S], len(tasks))
	for i, t := range tasks {
		node, ok := r.graph.nodes[t.node]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, t.node)
		}
		nodes[i] = node
	}

	eg, egCtx := errgroup.WithContext(ctx)
	if r.graph.maxConcurrency > 0 {
		eg.SetLimit(r.graph.maxConcurrency)
	}

	updates := make([]S, len(tasks))
	for i, t := range tasks {
		node := nodes[i]
		eg.Go(func() error {
			res, err := r.runNode(egCtx, node, state, t)
			if err != nil {
				return fmt.Errorf("error in node %s: %w", node.Name, err)
			}
			updates[i] = res
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return updates, nil
}

// runNode executes a single node with tracing, retry and panic recovery.
func (r *StateRunnable[S]) runNode(ctx context.Context, node TypedNode[S], state S, t task) (res S, err error) {
	var span *TraceSpan
	if r.tracer != nil {
		span = r.tracer.StartSpan(ctx, TraceEventNodeStart, node.Name)
		ctx = ContextWithSpan(ctx, span)
	}

	defer func() {
		if p := recover(); p != nil {
			var zero S
			res, err = zero, fmt.Errorf("panic in node %s: %v", node.Name, p)
		}
		if span != nil {
			r.tracer.EndSpan(ctx, span, err)
		}
	}()

	return runWithRetry(ctx, r.graph.retryPolicy, func() (S, error) {
		return node.invoke(ctx, state, t.arg, t.fromSend)
	})
}

// mergeState merges the updates of a superstep into the current state.
func (r *StateRunnable[S]) mergeState(ctx context.Context, currentState S, updates []S) (S, error) {
	state := currentState
	if r.graph.Schema != nil {
		for _, update := range updates {
			var err error
			state, err = r.graph.Schema.Update(state, update)
			if err != nil {
				var zero S
				return zero, fmt.Errorf("schema update failed: %w", err)
			}
		}
	} else if r.graph.stateMerger != nil {
		var err error
		state, err = r.graph.stateMerger(ctx, state, updates)
		if err != nil {
			var zero S
			return zero, fmt.Errorf("state merge failed: %w", err)
		}
	} else if len(updates) > 0 {
		state = updates[len(updates)-1]
	}
	return state, nil
}

// nextTasks determines the tasks of the next superstep. Static and conditional
// targets are deduplicated so a join node runs once; Sends are not.
func (r *StateRunnable[S]) nextTasks(ctx context.Context, ran []task, state S) ([]task, error) {
	var next []task
	seen := make(map[string]bool)
	visited := make(map[string]bool)

	schedule := func(from, to string) {
		if r.tracer != nil {
			r.tracer.TraceEdgeTraversal(ctx, from, to)
		}
		if to == END || seen[to] {
			return
		}
		seen[to] = true
		next = append(next, task{node: to})
	}

	for _, t := range ran {
		if visited[t.node] {
			continue
		}
		visited[t.node] = true

		if spawn, ok := r.graph.fanOutEdges[t.node]; ok {
			for _, send := range spawn(ctx, state) {
				if send.Node == END {
					continue
				}
				if r.tracer != nil {
					r.tracer.TraceEdgeTraversal(ctx, t.node, send.Node)
				}
				next = append(next, task{node: send.Node, arg: send.Arg, fromSend: true})
			}
			continue
		}

		if condition, ok := r.graph.conditionalEdges[t.node]; ok {
			target := condition(ctx, state)
			if target == "" {
				return nil, fmt.Errorf("conditional edge returned empty next node from %s", t.node)
			}
			schedule(t.node, target)
			continue
		}

		found := false
		for _, edge := range r.graph.edges {
			if edge.From == t.node {
				schedule(t.node, edge.To)
				found = true
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: %s", ErrNoOutgoingEdge, t.node)
		}
	}
	return next, nil
}
