package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/chris/toolcall/internal/orchestrator"
	"github.com/chris/toolcall/internal/tools"
)

const defaultWeatherQuestion = "What's the weather like in Beijing?"

func newWeatherCmd(a *app) *cobra.Command {
	var (
		temperature float64
		toolTimeout time.Duration
		parallel    int
		system      string
		showConv    bool
	)
	cmd := &cobra.Command{
		Use:   "weather [message]",
		Short: "Ask a question the model can answer with the getCurrentWeather tool",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := a.client(temperature)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("tool-timeout") {
				toolTimeout = a.cfg.ToolTimeout
			}
			input := defaultWeatherQuestion
			if len(args) > 0 {
				input = strings.Join(args, " ")
			}

			opts := append(a.orchestratorOptions(),
				orchestrator.WithSystemPrompt(system),
				orchestrator.WithToolTimeout(toolTimeout),
				orchestrator.WithParallelism(parallel),
			)
			o := orchestrator.New(client, tools.MustNewRegistry(tools.Weather()), opts...)
			answer, conv, err := o.Run(cmd.Context(), input)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if showConv {
				for _, m := range conv {
					printMessage(out, m)
				}
				return nil
			}
			fmt.Fprintln(out, answer)
			return nil
		},
	}
	cmd.Flags().Float64Var(&temperature, "temperature", 0, "sampling temperature")
	cmd.Flags().DurationVar(&toolTimeout, "tool-timeout", orchestrator.DefaultToolTimeout, "per-tool timeout (default from TOOL_TIMEOUT)")
	cmd.Flags().IntVar(&parallel, "parallel", 1, "tool calls to run at once")
	cmd.Flags().StringVar(&system, "system", "", "system prompt")
	cmd.Flags().BoolVar(&showConv, "conversation", false, "print every message instead of only the answer")
	return cmd
}
