package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smallnest/graphpatterns/graph"
	"github.com/smallnest/graphpatterns/model"
	"github.com/smallnest/graphpatterns/prebuilt"
	"github.com/smallnest/graphpatterns/tool"
)

var graphFormat string

var graphCmd = &cobra.Command{
	Use:       "graph <agent|router|jokes>",
	Short:     "Print the structure of a graph",
	Example:   `  graphpatterns graph jokes --format mermaid`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"agent", "router", "jokes"},
	// Drawing needs no model or configuration.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := drawGraph(args[0], graphFormat)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)

	graphCmd.Flags().StringVarP(&graphFormat, "format", "f", "ascii", "output format (ascii, mermaid)")
}

func drawGraph(name, format string) (string, error) {
	// The caller is never invoked while drawing.
	caller := model.NewCaller(nil)
	executor := tool.NewExecutor(tool.Arithmetic()...)

	var draw func(format string) string
	switch name {
	case "agent":
		r, err := prebuilt.CreateToolCallingAgent(caller, executor)
		if err != nil {
			return "", err
		}
		draw = exporterFunc(graph.GetGraphForRunnable(r))
	case "router":
		r, err := prebuilt.CreateToolRouter(caller, executor)
		if err != nil {
			return "", err
		}
		draw = exporterFunc(graph.GetGraphForRunnable(r))
	case "jokes":
		r, err := prebuilt.CreateJokeMapReduce(caller)
		if err != nil {
			return "", err
		}
		draw = exporterFunc(graph.GetGraphForRunnable(r))
	default:
		return "", fmt.Errorf("unknown graph %q", name)
	}

	switch format {
	case "ascii", "mermaid":
		return draw(format), nil
	default:
		return "", fmt.Errorf("unknown format %q", format)
	}
}

func exporterFunc[S any](e *graph.Exporter[S]) func(string) string {
	return func(format string) string {
		if format == "mermaid" {
			return e.DrawMermaid()
		}
		return e.DrawASCII()
	}
}
