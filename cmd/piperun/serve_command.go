package main

import (
	"strings"

	"github.com/spf13/cobra"

	"piperun/internal/daemonrun"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var opts daemonrun.Options
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the piperun daemon in the foreground",
		Long: "Run the piperun daemon in the foreground until interrupted.\n\n" +
			"The daemon owns the command channel session; use `piperun start` and\n" +
			"`piperun stop` from another terminal to control it.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if ctx.socketFlag != nil {
				opts.SocketPath = strings.TrimSpace(*ctx.socketFlag)
			}
			return daemonrun.Run(cmd.Context(), cfg, opts)
		},
	}
	cmd.Flags().StringVar(&opts.LogLevel, "log-level", "", "Override the configured log level")
	cmd.Flags().StringVar(&opts.LogFormat, "log-format", "", "Override the configured log format (console or json)")
	return cmd
}
