// Package prebuilt provides ready-to-use graphs for two agent patterns.
//
// # Tool-calling loop
//
// CreateToolCallingAgent wires an assistant node, ToolsCondition and a
// ToolNode into a loop: the model is called with the tools bound, every tool
// it requests is executed and answered, and the model is called again until
// it replies without requesting a tool.
//
//	caller := model.NewCaller(llm, model.WithTemperature(0))
//	agent, err := prebuilt.CreateToolCallingAgent(caller,
//		tool.NewExecutor(tool.Arithmetic()...),
//		prebuilt.WithSystemMessage(prebuilt.ArithmeticSystemPrompt),
//	)
//
//	res, err := agent.Invoke(ctx, graph.MessagesState{
//		Messages: []llms.MessageContent{
//			llms.TextParts(llms.ChatMessageTypeHuman, "What is 3 plus 4 times 5?"),
//		},
//	})
//
// The loop has no iteration bound unless WithMaxIterations is given. A failing
// tool aborts the run; WithToolErrorPolicy(ToolErrorReport) hands the error
// to the model as the tool result instead.
//
// CreateToolRouter is the single-shot variant: the tools node goes to END, so
// at most one round of tool calls runs.
//
// # Map-reduce
//
// CreateJokeMapReduce plans sub-topics for a topic, fans out one
// generate_joke run per sub-topic with graph.Send and lets best_joke choose
// among all jokes once every run has finished.
//
//	g, err := prebuilt.CreateJokeMapReduce(caller, prebuilt.WithMaxConcurrency(4))
//	res, err := g.Invoke(ctx, prebuilt.JokesState{Topic: "animals"})
//	fmt.Println(res.BestSelectedJoke)
//
// An empty plan yields ErrNoJokes, and a selection outside the joke list
// yields *IndexOutOfRangeError. The first failing joke run cancels the others
// and fails the graph.
//
// # Options
//
// WithLogger and WithTracer return a GraphOption, which every constructor
// accepts. The remaining options are typed AgentOption or MapReduceOption and
// only compile where they take effect.
package prebuilt
