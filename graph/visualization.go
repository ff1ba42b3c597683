package graph

import (
	"fmt"
	"sort"
	"strings"
)

// Exporter renders the structure of a graph.
type Exporter[S any] struct {
	graph *StateGraph[S]
}

// NewExporter creates a new graph exporter for the given graph.
func NewExporter[S any](graph *StateGraph[S]) *Exporter[S] {
	return &Exporter[S]{graph: graph}
}

// GetGraphForRunnable returns an Exporter for the graph a runnable was
// compiled from.
func GetGraphForRunnable[S any](r *StateRunnable[S]) *Exporter[S] {
	return NewExporter(r.graph)
}

// MermaidOptions defines configuration for Mermaid diagram generation.
type MermaidOptions struct {
	// Direction of the flowchart, "TD" or "LR".
	Direction string
}

// DrawMermaid renders the graph as a top-down Mermaid flowchart.
func (e *Exporter[S]) DrawMermaid() string {
	return e.DrawMermaidWithOptions(MermaidOptions{Direction: "TD"})
}

// DrawMermaidWithOptions renders the graph as a Mermaid flowchart.
//
// Static edges are solid, conditional edges are dotted and lead to a "?"
// decision, fan-out edges are thick and labelled Send.
func (e *Exporter[S]) DrawMermaidWithOptions(opts MermaidOptions) string {
	g := e.graph
	direction := opts.Direction
	if direction == "" {
		direction = "TD"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "flowchart %s\n", direction)
	sb.WriteString("    START([\"START\"])\n")

	for _, name := range e.nodeNames() {
		if g.nodes[name].Function == nil {
			// Send-only node
			fmt.Fprintf(&sb, "    %s[/\"%s\"/]\n", name, name)
		} else {
			fmt.Fprintf(&sb, "    %s[\"%s\"]\n", name, name)
		}
	}
	if e.reachesEnd() {
		sb.WriteString("    END([\"END\"])\n")
	}

	if g.entryPoint != "" {
		fmt.Fprintf(&sb, "    START --> %s\n", g.entryPoint)
	}
	for _, edge := range g.edges {
		fmt.Fprintf(&sb, "    %s --> %s\n", edge.From, edge.To)
	}
	for _, from := range sortedKeys(g.conditionalEdges) {
		fmt.Fprintf(&sb, "    %s -.-> %s_condition{\"?\"}\n", from, from)
	}
	for _, from := range sortedKeys(g.fanOutEdges) {
		fmt.Fprintf(&sb, "    %s ==>|Send| %s_send((\"*\"))\n", from, from)
	}

	sb.WriteString("    style START fill:#90EE90\n")
	if e.reachesEnd() {
		sb.WriteString("    style END fill:#FFB6C1\n")
	}
	if g.entryPoint != "" {
		fmt.Fprintf(&sb, "    style %s fill:#87CEEB\n", g.entryPoint)
	}
	return sb.String()
}

// DrawASCII renders the static structure as an indented tree starting at the
// entry point.
func (e *Exporter[S]) DrawASCII() string {
	if e.graph.entryPoint == "" {
		return "No entry point set\n"
	}

	var sb strings.Builder
	sb.WriteString("START\n")
	e.drawASCIINode(&sb, e.graph.entryPoint, "", true, make(map[string]bool))
	return sb.String()
}

func (e *Exporter[S]) drawASCIINode(sb *strings.Builder, name, prefix string, last bool, visited map[string]bool) {
	connector, childPrefix := "├── ", prefix+"│   "
	if last {
		connector, childPrefix = "└── ", prefix+"    "
	}

	if visited[name] {
		fmt.Fprintf(sb, "%s%s%s (cycle)\n", prefix, connector, name)
		return
	}
	visited[name] = true
	fmt.Fprintf(sb, "%s%s%s\n", prefix, connector, name)
	if name == END {
		return
	}

	var children []string
	for _, edge := range e.graph.edges {
		if edge.From == name {
			children = append(children, edge.To)
		}
	}
	sort.Strings(children)

	_, conditional := e.graph.conditionalEdges[name]
	_, fanOut := e.graph.fanOutEdges[name]

	total := len(children)
	if conditional {
		total++
	}
	if fanOut {
		total++
	}

	i := 0
	for _, child := range children {
		i++
		e.drawASCIINode(sb, child, childPrefix, i == total, visited)
	}
	for _, marker := range []struct {
		set   bool
		label string
	}{{conditional, "(?)"}, {fanOut, "(Send *)"}} {
		if !marker.set {
			continue
		}
		i++
		c := "├── "
		if i == total {
			c = "└── "
		}
		fmt.Fprintf(sb, "%s%s%s\n", childPrefix, c, marker.label)
	}
}

func (e *Exporter[S]) nodeNames() []string {
	names := make([]string, 0, len(e.graph.nodes))
	for name := range e.graph.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (e *Exporter[S]) reachesEnd() bool {
	for _, edge := range e.graph.edges {
		if edge.To == END {
			return true
		}
	}
	return len(e.graph.conditionalEdges) > 0
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
