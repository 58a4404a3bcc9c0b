package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"piperun/internal/command"
	"piperun/internal/fifo"
	"piperun/internal/ipc"
)

func newSendCommand(ctx *commandContext) *cobra.Command {
	var pipeFlag string
	cmd := &cobra.Command{
		Use:   "send [verb argument...]",
		Short: "Write command lines into the session pipe",
		Long: "Write one command line built from the arguments, or one line per\n" +
			"input line when stdin is not a terminal.\n\n" +
			"Verbs: reload_script <path>, run_script <path>, reload_addon <name>.",
		Example: "  piperun send run_script /home/me/scripts/build.sh\n" +
			"  printf 'reload_addon tools\\n' | piperun send",
		RunE: func(cmd *cobra.Command, args []string) error {
			lines, err := collectSendLines(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			if len(lines) == 0 {
				return errors.New("nothing to send")
			}

			path := strings.TrimSpace(pipeFlag)
			if path == "" {
				path, err = sessionPipePath(ctx)
				if err != nil {
					return err
				}
			}
			return sendLines(cmd, path, lines)
		},
	}
	cmd.Flags().StringVar(&pipeFlag, "pipe", "", "Pipe path to write to (defaults to the running session's pipe)")
	return cmd
}

func collectSendLines(args []string, in io.Reader) ([]string, error) {
	if len(args) > 0 {
		return []string{strings.Join(args, " ")}, nil
	}
	if file, ok := in.(*os.File); ok && isTerminal(file) {
		return nil, errors.New("provide a command line as arguments or pipe lines on stdin")
	}

	var lines []string
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	return lines, nil
}

func sessionPipePath(ctx *commandContext) (string, error) {
	var path string
	err := ctx.withClient(func(client *ipc.Client) error {
		resp, err := client.Status()
		if err != nil {
			return err
		}
		if !resp.Session.Running {
			return errors.New("no session running; start one with `piperun start`")
		}
		path = resp.Session.PipePath
		return nil
	})
	return path, err
}

func sendLines(cmd *cobra.Command, path string, lines []string) error {
	w, err := fifo.Dial(path)
	if err != nil {
		if errors.Is(err, fifo.ErrNoReader) {
			return fmt.Errorf("pipe %s has no listener; start a session with `piperun start`", path)
		}
		return err
	}
	defer w.Close()

	for _, line := range lines {
		if _, _, ok := command.Split(line); !ok {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %q has no argument and will be ignored\n", line)
		}
		if err := w.WriteLine(line); err != nil {
			return fmt.Errorf("send %q: %w", line, err)
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Sent %d command(s) to %s\n", len(lines), path)
	return nil
}
