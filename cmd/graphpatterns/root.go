package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/smallnest/graphpatterns/config"
	"github.com/smallnest/graphpatterns/graph"
	"github.com/smallnest/graphpatterns/log"
	"github.com/smallnest/graphpatterns/metrics"
	"github.com/smallnest/graphpatterns/model"
)

var (
	cfgFile     string
	logLevel    string
	metricsAddr string

	appConfig *config.Config
	tracer    *graph.Tracer
)

var rootCmd = &cobra.Command{
	Use:   "graphpatterns",
	Short: "Run agent graph patterns against a chat model",
	Long: `graphpatterns runs three graphs against an OpenAI or Azure OpenAI model:
a tool-calling arithmetic agent, a single-shot tool router and a map-reduce
joke generator.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error, none)")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :2112")
}

func setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	log.SetLogLevel(level)

	tracer = graph.NewTracer(graph.NewLogHook(log.GetDefaultLogger()))
	if metricsAddr != "" {
		collector, err := metrics.NewCollector(prometheus.DefaultRegisterer)
		if err != nil {
			return err
		}
		tracer.AddHook(collector)
		go serveMetrics(metricsAddr)
	}

	appConfig = cfg
	return nil
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log.Info("serving metrics on %s/metrics", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("metrics server: %v", err)
	}
}

// newCaller builds the configured caller. opts are applied last.
func newCaller(opts ...model.CallerOption) (*model.Caller, error) {
	opts = append([]model.CallerOption{model.WithLogger(log.GetDefaultLogger())}, opts...)
	return model.NewCallerFromConfig(appConfig.Model, opts...)
}
