package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newProvidersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List the configured chat providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tKIND\tMODEL\tKEY\tBASE URL")
			for _, p := range a.cfg.Providers {
				name := p.Name
				if strings.EqualFold(name, strings.TrimSpace(a.cfg.Provider)) {
					name += " *"
				}
				key := p.APIKeyEnv
				if p.KeyOptional {
					key = "-"
				}
				base := p.BaseURLEnv
				if p.BaseURL != "" {
					base += " (" + p.BaseURL + ")"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", name, p.Kind, p.Model, key, base)
			}
			return tw.Flush()
		},
	}
}
