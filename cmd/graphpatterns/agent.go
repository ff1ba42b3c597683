package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/tmc/langchaingo/llms"

	"github.com/smallnest/graphpatterns/graph"
	"github.com/smallnest/graphpatterns/log"
	"github.com/smallnest/graphpatterns/prebuilt"
	"github.com/smallnest/graphpatterns/tool"
)

var agentCmd = &cobra.Command{
	Use:   "agent <question>",
	Short: "Answer an arithmetic question with the tool-calling agent",
	Long: `Runs the assistant/tools loop with the add, multiply and divide tools until
the model answers without requesting a tool.`,
	Example: `  graphpatterns agent "What is 3 plus 4 times 5?"`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		caller, err := newCaller()
		if err != nil {
			return err
		}
		policy, err := prebuilt.ParseToolErrorPolicy(appConfig.Agent.ToolErrorPolicy)
		if err != nil {
			return err
		}

		agent, err := prebuilt.CreateToolCallingAgent(caller, tool.NewExecutor(tool.Arithmetic()...),
			prebuilt.WithSystemMessage(prebuilt.ArithmeticSystemPrompt),
			prebuilt.WithMaxIterations(appConfig.Agent.MaxIterations),
			prebuilt.WithToolErrorPolicy(policy),
			prebuilt.WithLogger(log.GetDefaultLogger()),
			prebuilt.WithTracer(tracer),
		)
		if err != nil {
			return err
		}
		return runConversation(cmd, agent, strings.Join(args, " "))
	},
}

var routerCmd = &cobra.Command{
	Use:   "router <message>",
	Short: "Call the multiply tool at most once",
	Long: `Runs a single model call with the multiply tool bound. If the model requests
the tool it is executed and the run ends; otherwise the model's reply is final.`,
	Example: `  graphpatterns router "Multiply 2 and 3"`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		caller, err := newCaller()
		if err != nil {
			return err
		}

		router, err := prebuilt.CreateToolRouter(caller, tool.NewExecutor(tool.NewMultiply()),
			prebuilt.WithLogger(log.GetDefaultLogger()),
			prebuilt.WithTracer(tracer),
		)
		if err != nil {
			return err
		}
		return runConversation(cmd, router, strings.Join(args, " "))
	},
}

func init() {
	rootCmd.AddCommand(agentCmd)
	rootCmd.AddCommand(routerCmd)
}

func runConversation(cmd *cobra.Command, runnable *graph.StateRunnable[graph.MessagesState], question string) error {
	final, err := runnable.Invoke(cmd.Context(), graph.MessagesState{
		Messages: []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, question)},
	})
	if err != nil {
		return err
	}
	renderTranscript(cmd.OutOrStdout(), final.Messages)
	return nil
}
