package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"streamvault/internal/ipc"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show live recordings on the running host",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				status, err := client.Status()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if status.ActiveCount == 0 {
					fmt.Fprintf(out, "no live recordings (host pid %d)\n", status.PID)
					return nil
				}

				rows := make([][]string, 0, len(status.Sessions))
				for _, session := range status.Sessions {
					rows = append(rows, []string{
						session.Login,
						session.Quality,
						strconv.Itoa(session.PID),
						formatElapsed(time.Since(session.StartedAt)),
						session.OutputPath,
					})
				}

				if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
					fmt.Fprintln(out, renderTable(
						[]string{"CHANNEL", "QUALITY", "PID", "ELAPSED", "OUTPUT"},
						rows,
						3, 4,
					))
					return nil
				}
				for _, row := range rows {
					fmt.Fprintln(out, strings.Join(row, "\t"))
				}
				return nil
			})
		},
	}
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return d.Truncate(time.Second).String()
}
