package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chris/toolcall/internal/orchestrator"
	"github.com/chris/toolcall/internal/tools"
)

const defaultQuestion = "你是什么模型？"

func newAskCmd(a *app) *cobra.Command {
	var (
		temperature float64
		system      string
	)
	cmd := &cobra.Command{
		Use:   "ask [message]",
		Short: "Send one message without tools and print the reply",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, model, err := a.client(temperature)
			if err != nil {
				return err
			}
			input := defaultQuestion
			if len(args) > 0 {
				input = strings.Join(args, " ")
			}

			// An empty registry declares no tools, so this is a single call.
			opts := append(a.orchestratorOptions(), orchestrator.WithSystemPrompt(system))
			o := orchestrator.New(client, tools.MustNewRegistry(), opts...)
			answer, _, err := o.Run(cmd.Context(), input)
			if err != nil {
				return err
			}
			a.log.Info("answered", "model", model)
			fmt.Fprintln(cmd.OutOrStdout(), answer)
			return nil
		},
	}
	cmd.Flags().Float64Var(&temperature, "temperature", 0.7, "sampling temperature")
	cmd.Flags().StringVar(&system, "system", "", "system prompt")
	return cmd
}
