package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"hoist/internal/ipc"
)

func newCancelCommand(ctx *commandContext) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "cancel [id]",
		Short: "Cancel a queued or running upload",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) == 1) {
				return errors.New("specify either an upload id or --all")
			}
			return ctx.withClient(func(client *ipc.Client) error {
				out := cmd.OutOrStdout()
				if all {
					if _, err := client.CancelAll(); err != nil {
						return err
					}
					fmt.Fprintln(out, "Cancelled all running uploads")
					return nil
				}
				resp, err := client.Cancel(args[0])
				if err != nil {
					return err
				}
				if resp.Cancelled {
					fmt.Fprintf(out, "Cancelled upload %s\n", args[0])
				} else {
					fmt.Fprintf(out, "Upload %s is not queued or running\n", args[0])
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Cancel every running upload")
	return cmd
}
