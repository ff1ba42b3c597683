package graph

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smallnest/graphpatterns/log"
)

// TraceEvent represents different types of events in graph execution
type TraceEvent string

const (
	// TraceEventGraphStart indicates the start of graph execution
	TraceEventGraphStart TraceEvent = "graph_start"

	// TraceEventGraphEnd indicates the end of graph execution
	TraceEventGraphEnd TraceEvent = "graph_end"

	// TraceEventNodeStart indicates the start of node execution
	TraceEventNodeStart TraceEvent = "node_start"

	// TraceEventNodeEnd indicates the end of node execution
	TraceEventNodeEnd TraceEvent = "node_end"

	// TraceEventNodeError indicates an error occurred in node execution
	TraceEventNodeError TraceEvent = "node_error"

	// TraceEventEdgeTraversal indicates traversal from one node to another
	TraceEventEdgeTraversal TraceEvent = "edge_traversal"
)

// TraceSpan represents a span of execution with timing and metadata
type TraceSpan struct {
	// ID is a unique identifier for this span
	ID string

	// ParentID is the ID of the parent span (empty for root spans)
	ParentID string

	// Event indicates the type of event this span represents
	Event TraceEvent

	// NodeName is the name of the node being executed (if applicable)
	NodeName string

	// FromNode is the source node for edge traversals
	FromNode string

	// ToNode is the destination node for edge traversals
	ToNode string

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	// Error contains any error that occurred during execution
	Error error

	// Metadata contains additional key-value pairs for observability
	Metadata map[string]any
}

// TraceHook defines the interface for trace event handlers.
// Hooks may be called from several goroutines at once.
type TraceHook interface {
	OnEvent(ctx context.Context, span *TraceSpan)
}

// TraceHookFunc is a function adapter for TraceHook
type TraceHookFunc func(ctx context.Context, span *TraceSpan)

// OnEvent implements the TraceHook interface
func (f TraceHookFunc) OnEvent(ctx context.Context, span *TraceSpan) {
	f(ctx, span)
}

// Tracer manages trace collection and hooks. It is safe for concurrent use.
type Tracer struct {
	mu    sync.Mutex
	hooks []TraceHook
	spans map[string]*TraceSpan
}

// NewTracer creates a new tracer instance
func NewTracer(hooks ...TraceHook) *Tracer {
	return &Tracer{
		hooks: hooks,
		spans: make(map[string]*TraceSpan),
	}
}

// AddHook registers a new trace hook
func (t *Tracer) AddHook(hook TraceHook) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hooks = append(t.hooks, hook)
}

// StartSpan creates a new trace span
func (t *Tracer) StartSpan(ctx context.Context, event TraceEvent, nodeName string) *TraceSpan {
	span := &TraceSpan{
		ID:        uuid.NewString(),
		Event:     event,
		NodeName:  nodeName,
		StartTime: time.Now(),
		Metadata:  make(map[string]any),
	}
	if parent := SpanFromContext(ctx); parent != nil {
		span.ParentID = parent.ID
	}

	t.record(ctx, span)
	return span
}

// EndSpan completes a trace span
func (t *Tracer) EndSpan(ctx context.Context, span *TraceSpan, err error) {
	span.EndTime = time.Now()
	span.Duration = span.EndTime.Sub(span.StartTime)
	span.Error = err

	switch span.Event {
	case TraceEventNodeStart:
		if err != nil {
			span.Event = TraceEventNodeError
		} else {
			span.Event = TraceEventNodeEnd
		}
	case TraceEventGraphStart:
		span.Event = TraceEventGraphEnd
	}

	t.record(ctx, span)
}

// TraceEdgeTraversal records an edge traversal event
func (t *Tracer) TraceEdgeTraversal(ctx context.Context, fromNode, toNode string) {
	now := time.Now()
	span := &TraceSpan{
		ID:        uuid.NewString(),
		Event:     TraceEventEdgeTraversal,
		FromNode:  fromNode,
		ToNode:    toNode,
		StartTime: now,
		EndTime:   now,
		Metadata:  make(map[string]any),
	}
	if parent := SpanFromContext(ctx); parent != nil {
		span.ParentID = parent.ID
	}

	t.record(ctx, span)
}

func (t *Tracer) record(ctx context.Context, span *TraceSpan) {
	t.mu.Lock()
	t.spans[span.ID] = span
	hooks := make([]TraceHook, len(t.hooks))
	copy(hooks, t.hooks)
	t.mu.Unlock()

	for _, hook := range hooks {
		hook.OnEvent(ctx, span)
	}
}

// GetSpans returns a copy of all collected spans
func (t *Tracer) GetSpans() map[string]*TraceSpan {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]*TraceSpan, len(t.spans))
	for id, span := range t.spans {
		out[id] = span
	}
	return out
}

// Clear removes all collected spans
func (t *Tracer) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.spans = make(map[string]*TraceSpan)
}

type spanContextKey struct{}

// ContextWithSpan returns a new context with the span stored
func ContextWithSpan(ctx context.Context, span *TraceSpan) context.Context {
	return context.WithValue(ctx, spanContextKey{}, span)
}

// SpanFromContext extracts a span from context
func SpanFromContext(ctx context.Context) *TraceSpan {
	if span, ok := ctx.Value(spanContextKey{}).(*TraceSpan); ok {
		return span
	}
	return nil
}

// NewLogHook returns a hook that writes trace events to logger.
func NewLogHook(logger log.Logger) TraceHook {
	return TraceHookFunc(func(_ context.Context, span *TraceSpan) {
		switch span.Event {
		case TraceEventNodeStart:
			logger.Debug("node %s started", span.NodeName)
		case TraceEventNodeEnd:
			logger.Debug("node %s finished in %s", span.NodeName, span.Duration)
		case TraceEventNodeError:
			logger.Error("node %s failed after %s: %v", span.NodeName, span.Duration, span.Error)
		case TraceEventEdgeTraversal:
			logger.Debug("edge %s -> %s", span.FromNode, span.ToNode)
		case TraceEventGraphStart:
			logger.Debug("graph run started")
		case TraceEventGraphEnd:
			if span.Error != nil {
				logger.Error("graph run failed after %s: %v", span.Duration, span.Error)
			} else {
				logger.Debug("graph run finished in %s", span.Duration)
			}
		}
	})
}
