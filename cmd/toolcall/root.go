package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/chris/toolcall/config"
	"github.com/chris/toolcall/internal/llm"
	"github.com/chris/toolcall/internal/logging"
	"github.com/chris/toolcall/internal/metrics"
	"github.com/chris/toolcall/internal/orchestrator"
	"github.com/chris/toolcall/internal/telemetry"
)

// app carries state shared by every subcommand once the root pre-run has
// loaded configuration.
type app struct {
	provider    string
	model       string
	verbose     bool
	metricsFile string

	cfg     *config.Config
	log     *slog.Logger
	metrics *metrics.Metrics
	tp      *sdktrace.TracerProvider
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "toolcall",
		Short: "Chat with an LLM endpoint and resolve its tool calls locally",
		Long: `toolcall sends a prompt to an OpenAI-compatible or Anthropic endpoint.
When the model asks for a tool, toolcall runs it locally, returns the result
and prints the model's final answer.

The endpoint is chosen with MODEL_TYPE or --provider; credentials come from
<PROVIDER>_API_KEY and <PROVIDER>_BASE_URL, optionally loaded from .env.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context())
		},
	}

	root.PersistentFlags().StringVar(&a.provider, "provider", "", "provider id (overrides MODEL_TYPE)")
	root.PersistentFlags().StringVar(&a.model, "model", "", "model name (overrides LLM_MODEL and the provider default)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")
	root.PersistentFlags().StringVar(&a.metricsFile, "metrics-file", "", `write Prometheus metrics here on exit, "-" for stderr (default TOOLCALL_METRICS_FILE)`)

	root.AddCommand(
		newAskCmd(a),
		newWeatherCmd(a),
		newProvidersCmd(a),
		newPromptHubCmd(a),
		newPromptLayerCmd(a),
	)
	a.finishAfter(root)
	return root
}

// finishAfter makes every runnable command under cmd call finish on the way
// out, whether it succeeded or not.
func (a *app) finishAfter(cmd *cobra.Command) {
	if run := cmd.RunE; run != nil {
		cmd.RunE = func(cmd *cobra.Command, args []string) error {
			defer a.finish()
			return run(cmd, args)
		}
	}
	for _, sub := range cmd.Commands() {
		a.finishAfter(sub)
	}
}

func (a *app) setup(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a.cfg = cfg
	a.log = logging.New(cfg.LogLevel, a.verbose)
	slog.SetDefault(a.log)
	a.metrics = metrics.New()
	if a.metricsFile == "" {
		a.metricsFile = cfg.MetricsFile
	}

	if cfg.OTLPEndpoint != "" {
		tp, err := telemetry.NewTracerProvider(ctx, cfg.OTLPEndpoint, "toolcall")
		if err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
		otel.SetTracerProvider(tp)
		telemetry.SetupPropagation()
		a.tp = tp
	}
	return nil
}

// finish flushes spans and writes metrics. Failures are logged, not
// returned, so they never mask the command's own result.
func (a *app) finish() {
	if a.metrics == nil {
		return // setup never ran
	}
	if a.tp != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.tp.Shutdown(ctx); err != nil {
			a.log.Warn("flushing traces", "error", err)
		}
	}
	if a.metricsFile == "" {
		return
	}
	var err error
	if a.metricsFile == "-" {
		err = a.metrics.WriteText(os.Stderr)
	} else {
		err = a.metrics.WriteFile(a.metricsFile)
	}
	if err != nil {
		a.log.Warn("writing metrics", "path", a.metricsFile, "error", err)
	}
}

// client resolves the selected endpoint and binds it at the given sampling
// temperature.
func (a *app) client(temperature float64) (llm.Client, string, error) {
	ep, err := a.cfg.Endpoint(a.provider, a.model)
	if err != nil {
		return nil, "", err
	}
	ep.Temperature = &temperature
	c, err := llm.NewClient(ep)
	if err != nil {
		return nil, "", err
	}
	a.log.Debug("endpoint", "provider", ep.Provider, "kind", ep.Kind, "model", ep.Model, "base_url", ep.BaseURL)
	return c, ep.Model, nil
}

// orchestratorOptions are the options every command shares.
func (a *app) orchestratorOptions() []orchestrator.Option {
	return []orchestrator.Option{
		orchestrator.WithLogger(a.log),
		orchestrator.WithMetrics(a.metrics),
		orchestrator.WithTracer(telemetry.Tracer(nil)),
	}
}
