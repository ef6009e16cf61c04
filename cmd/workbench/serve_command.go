package main

import (
	"github.com/spf13/cobra"

	"workbench/internal/serverrun"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var opts serverrun.Options

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Workbench HTTP server in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return serverrun.Run(cmd.Context(), cfg, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Bind, "bind", "", "Listen address (overrides api.bind)")
	cmd.Flags().StringVar(&opts.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	return cmd
}
