package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"piperun/internal/ipc"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var req ipc.HistoryRequest
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently processed command lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.History(req)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, resp.Entries)
				}
				out := cmd.OutOrStdout()
				if len(resp.Entries) == 0 {
					fmt.Fprintln(out, "No commands recorded")
					return nil
				}
				fmt.Fprintln(out, renderHistoryTable(resp.Entries, time.Now()))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&req.Limit, "limit", "n", 20, "Maximum number of entries")
	cmd.Flags().StringVar(&req.SessionID, "session", "", "Only show entries from this session id")
	cmd.Flags().StringVar(&req.Outcome, "outcome", "", "Only show entries with this outcome (ok, no_target, failed, malformed, dropped)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output entries as JSON")
	return cmd
}

func renderHistoryTable(entries []ipc.HistoryEntry, now time.Time) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		target := e.Argument
		if e.Verb == "" {
			target = e.Line
		}
		rows = append(rows, []string{
			strconv.FormatInt(e.ID, 10),
			formatAge(e.RecordedAt, now),
			verbLabel(e.Verb),
			truncate(target, 48),
			strings.ReplaceAll(e.Outcome, "_", " "),
			fmt.Sprintf("%dms", e.DurationMS),
			e.Message,
		})
	}
	return renderTable([]tableColumn{
		{Header: "ID", Align: alignRight},
		{Header: "When"},
		{Header: "Verb"},
		{Header: "Target"},
		{Header: "Outcome"},
		{Header: "Took", Align: alignRight},
		{Header: "Message", MaxWidth: 60},
	}, rows)
}
