package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"wavecatch/internal/ipc"
)

const logFollowWait = 5 * time.Second

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		lines  int
		follow bool
		jobID  string
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show daemon logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				req := ipc.LogTailRequest{
					Offset: -1,
					Limit:  lines,
					JobID:  strings.TrimSpace(jobID),
				}
				for {
					resp, err := client.LogTail(cmd.Context(), req)
					if err != nil {
						if cmd.Context().Err() != nil {
							return nil
						}
						return err
					}
					for _, line := range resp.Lines {
						fmt.Fprintln(stdout, line)
					}
					if !follow {
						return nil
					}
					req.Offset = resp.Offset
					req.Limit = 0
					req.Follow = true
					req.WaitMillis = int(logFollowWait / time.Millisecond)
				}
			})
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines")
	cmd.Flags().StringVar(&jobID, "job", "", "Only show lines mentioning this job id")
	return cmd
}
