package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"wavecatch/internal/api"
	"wavecatch/internal/ipc"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var (
		replay bool
		jobID  string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream job updates as they happen",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)
			emit := lineEncoder(stdout)
			return ctx.withClient(func(client *ipc.Client) error {
				var since uint64
				if !replay {
					cursor, err := currentCursor(cmd.Context(), client)
					if err != nil {
						return err
					}
					since = cursor
				}
				return followUpdates(cmd.Context(), client, since, func(update api.JobUpdate) error {
					if jobID != "" && update.Job.ID != jobID {
						return nil
					}
					if asJSON {
						return emit(update)
					}
					_, err := fmt.Fprintln(stdout, updateLine(update, colorize))
					return err
				})
			})
		},
	}
	cmd.Flags().BoolVar(&replay, "replay", false, "Replay buffered updates before following")
	cmd.Flags().StringVar(&jobID, "job", "", "Only show updates for this job id")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit one JSON object per update")
	return cmd
}
