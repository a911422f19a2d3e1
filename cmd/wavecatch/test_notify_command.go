package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"wavecatch/internal/ipc"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification through the configured ntfy topic",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.TestNotification(cmd.Context())
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				switch {
				case resp.Message != "":
					fmt.Fprintln(stdout, resp.Message)
				case resp.Sent:
					fmt.Fprintln(stdout, "Test notification sent")
				default:
					fmt.Fprintln(stdout, "Notification not sent")
				}
				return nil
			})
		},
	}
}
