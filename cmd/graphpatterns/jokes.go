package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/smallnest/graphpatterns/config"
	"github.com/smallnest/graphpatterns/log"
	"github.com/smallnest/graphpatterns/model"
	"github.com/smallnest/graphpatterns/prebuilt"
)

var maxConcurrency int

var jokesCmd = &cobra.Command{
	Use:   "jokes <topic>",
	Short: "Generate jokes about sub-topics in parallel and pick the best one",
	Long: `Plans sub-topics for the topic, writes one joke per sub-topic concurrently
and asks the model to select the best joke once all of them are done.`,
	Example: `  graphpatterns jokes animals`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		caller, err := newCaller(jokesCallerOptions(appConfig)...)
		if err != nil {
			return err
		}

		limit := appConfig.MapReduce.MaxConcurrency
		if cmd.Flags().Changed("max-concurrency") {
			limit = maxConcurrency
		}

		g, err := prebuilt.CreateJokeMapReduce(caller,
			prebuilt.WithMaxConcurrency(limit),
			prebuilt.WithLogger(log.GetDefaultLogger()),
			prebuilt.WithTracer(tracer),
		)
		if err != nil {
			return err
		}

		final, err := g.Invoke(cmd.Context(), prebuilt.JokesState{Topic: strings.Join(args, " ")})
		if err != nil {
			return err
		}
		renderJokes(cmd.OutOrStdout(), final)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(jokesCmd)

	jokesCmd.Flags().IntVar(&maxConcurrency, "max-concurrency", 0, "maximum jokes generated at once (0 = unbounded)")
}

// jokesCallerOptions samples jokes at map_reduce.temperature rather than the
// model default.
func jokesCallerOptions(cfg *config.Config) []model.CallerOption {
	return []model.CallerOption{model.WithTemperature(cfg.MapReduce.Temperature)}
}
