// Package graph provides the state graph engine the graphpatterns agents run on.
//
// A StateGraph[S] is a set of named nodes over a state of type S. Each node
// receives the current state and returns an update; the graph's schema folds
// updates into the state. Edges decide which nodes run next:
//
//   - AddEdge: static edge, one target.
//   - AddConditionalEdge: the target is computed from the state after the node ran.
//   - AddFanOutEdge: the edge returns a list of Send values, and the target of
//     each Send runs once with the Send's argument. The list length is decided
//     at runtime.
//
// # Execution model
//
// A run proceeds in supersteps. All tasks of a superstep run concurrently
// (bounded by SetMaxConcurrency) and the step only completes once every task
// has returned, so a node reached from several tasks of the same step runs
// exactly once afterwards, with all of their updates merged. The first task
// failure cancels its siblings and ends the run with that error.
//
// Node functions run concurrently on the same state value and must not mutate
// slices or maps reachable from it; they return fresh updates instead.
//
// # Example
//
//	g := graph.NewStateGraph[graph.MessagesState]()
//	g.SetSchema(graph.NewMessagesSchema())
//	g.AddNode("assistant", "Calls the model", assistant)
//	g.AddNode("tools", "Runs tool calls", tools)
//	g.SetEntryPoint("assistant")
//	g.AddConditionalEdge("assistant", route)
//	g.AddEdge("tools", "assistant")
//
//	runnable, err := g.Compile()
//	if err != nil {
//		return err
//	}
//	final, err := runnable.Invoke(ctx, graph.MessagesState{Messages: input})
package graph
