package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"piperun/internal/ipc"
)

func newSessionCommands(ctx *commandContext) []*cobra.Command {
	var pipeFlag string
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start listening on the command pipe",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Start(ipc.StartRequest{PipePath: strings.TrimSpace(pipeFlag)})
				if err != nil {
					return err
				}
				if resp == nil {
					return errors.New("missing start response")
				}
				if !resp.Started {
					return fmt.Errorf("start session: %s", resp.Message)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s\n", resp.Session.PipePath)
				return nil
			})
		},
	}
	startCmd.Flags().StringVar(&pipeFlag, "pipe", "", "Pipe path template for this and later sessions (supports ${tmp} and ${home})")

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop listening on the command pipe",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Stop()
				if err != nil {
					return err
				}
				if resp == nil {
					return errors.New("missing stop response")
				}
				stdout := cmd.OutOrStdout()
				switch {
				case resp.Requested:
					fmt.Fprintln(stdout, "Stopping session...")
				case resp.Message != "":
					fmt.Fprintln(stdout, capitalize(resp.Message))
				default:
					fmt.Fprintln(stdout, "Stop request sent")
				}
				return nil
			})
		},
	}

	var jsonOutput bool
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and session status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Status()
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				fmt.Fprint(out, renderStatus(resp, shouldColorize(out)))
				return nil
			})
		},
	}
	statusCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output status as JSON")

	return []*cobra.Command{startCmd, stopCmd, statusCmd}
}
