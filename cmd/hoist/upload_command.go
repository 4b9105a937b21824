package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hoist/internal/ipc"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	flags := &uploadFlags{}
	cmd := &cobra.Command{
		Use:   "upload <path>",
		Short: "Start an upload immediately, bypassing the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(cmd, args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.StartUpload(opts)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Started upload %s\n", resp.ID)
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}
