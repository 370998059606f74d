package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chris/toolcall/internal/prompthub"
)

func newPromptHubCmd(a *app) *cobra.Command {
	var field string
	cmd := &cobra.Command{
		Use:   "prompthub",
		Short: "Fetch or run prompts stored in PromptHub",
	}
	cmd.PersistentFlags().StringVar(&field, "field", "", "print only this gjson path of the response")

	hub := func() *prompthub.PromptHub {
		return prompthub.NewPromptHub(a.cfg.PromptHubKey, prompthub.WithBaseURL(a.cfg.PromptHubBaseURL))
	}

	var branch string
	head := &cobra.Command{
		Use:   "head <project-id>",
		Short: "Show the latest prompt committed to a branch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := hub().Head(cmd.Context(), args[0], branch)
			if err != nil {
				return err
			}
			return printDocument(cmd.OutOrStdout(), doc, field)
		},
	}
	head.Flags().StringVar(&branch, "branch", prompthub.DefaultBranch, "branch name")

	var runVars []string
	run := &cobra.Command{
		Use:   "run <project-id>",
		Short: "Run a project's prompt with template variables",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vars, err := parseVars(runVars)
			if err != nil {
				return err
			}
			doc, err := hub().Run(cmd.Context(), args[0], vars)
			if err != nil {
				return err
			}
			return printDocument(cmd.OutOrStdout(), doc, field)
		},
	}
	run.Flags().StringArrayVar(&runVars, "var", nil, "template variable as key=value (repeatable)")

	cmd.AddCommand(head, run)
	return cmd
}

func newPromptLayerCmd(a *app) *cobra.Command {
	var (
		field string
		vars  []string
	)
	cmd := &cobra.Command{
		Use:   "promptlayer",
		Short: "Fetch prompt templates from PromptLayer",
	}
	get := &cobra.Command{
		Use:   "get <template>",
		Short: "Fetch a template rendered with input variables",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parseVars(vars)
			if err != nil {
				return err
			}
			pl := prompthub.NewPromptLayer(a.cfg.PromptLayerKey, prompthub.WithBaseURL(a.cfg.PromptLayerBaseURL))
			doc, err := pl.Template(cmd.Context(), args[0], parsed)
			if err != nil {
				return err
			}
			return printDocument(cmd.OutOrStdout(), doc, field)
		},
	}
	get.Flags().StringArrayVar(&vars, "var", nil, "input variable as key=value (repeatable)")
	get.Flags().StringVar(&field, "field", "", "print only this gjson path of the response")
	cmd.AddCommand(get)
	return cmd
}

// parseVars turns repeated key=value flags into a map. Later keys win.
func parseVars(pairs []string) (map[string]string, error) {
	vars := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid variable %q, want key=value", p)
		}
		vars[strings.TrimSpace(k)] = v
	}
	return vars, nil
}
