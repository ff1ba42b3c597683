// Package metrics exports graph execution metrics to Prometheus.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/smallnest/graphpatterns/graph"
)

const namespace = "graphpatterns"

// Status label values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Collector counts node executions and observes their duration. It is a
// graph.TraceHook; add it to the tracer of a runnable.
type Collector struct {
	executions *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	edges      *prometheus.CounterVec
}

// NewCollector creates a Collector and registers it with reg. A nil reg
// uses prometheus.DefaultRegisterer.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		executions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "node_executions_total",
				Help:      "Total number of node executions",
			},
			[]string{"node", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "node_duration_seconds",
				Help:      "Duration of node executions",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"node"},
		),
		edges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "edge_traversals_total",
				Help:      "Total number of edge traversals",
			},
			[]string{"from", "to"},
		),
	}

	for _, col := range []prometheus.Collector{c.executions, c.duration, c.edges} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// OnEvent implements graph.TraceHook.
func (c *Collector) OnEvent(_ context.Context, span *graph.TraceSpan) {
	switch span.Event {
	case graph.TraceEventNodeEnd:
		c.observe(span, StatusOK)
	case graph.TraceEventNodeError:
		c.observe(span, StatusError)
	case graph.TraceEventEdgeTraversal:
		c.edges.WithLabelValues(span.FromNode, span.ToNode).Inc()
	}
}

func (c *Collector) observe(span *graph.TraceSpan, status string) {
	c.executions.WithLabelValues(span.NodeName, status).Inc()
	c.duration.WithLabelValues(span.NodeName).Observe(span.Duration.Seconds())
}

var _ graph.TraceHook = (*Collector)(nil)
