package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"hoist/internal/fileinfo"
	"hoist/internal/ipc"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the upload queue",
	}

	queueCmd.AddCommand(newQueueAddCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))
	queueCmd.AddCommand(newQueueResumeCommand(ctx))

	return queueCmd
}

func newQueueAddCommand(ctx *commandContext) *cobra.Command {
	flags := &uploadFlags{}
	cmd := &cobra.Command{
		Use:   "add <path>",
		Short: "Append an upload to the persisted queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options(cmd, args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.AddToQueue(opts)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued upload %s\n", resp.ID)
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queued uploads, head first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.QueueList()
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp)
				}
				out := cmd.OutOrStdout()
				if len(resp.Entries) == 0 {
					fmt.Fprintln(out, "Queue is empty")
					return nil
				}
				rows := make([][]string, 0, len(resp.Entries))
				for _, entry := range resp.Entries {
					state := "waiting"
					if entry.InFlight {
						state = "uploading"
					}
					rows = append(rows, []string{
						strconv.Itoa(entry.Position),
						entry.ID,
						filepath.Base(entry.Path),
						sizeLabel(entry.Path),
						entry.Method + " " + entry.URL,
						state,
						queuedAge(entry.EnqueuedAt),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"#", "ID", "File", "Size", "Destination", "State", "Queued"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every queued upload; a running upload continues",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ClearQueue()
				if err != nil {
					return err
				}
				if resp.Cleared {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue cleared")
				}
				return nil
			})
		},
	}
}

func newQueueResumeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Start the head of a queue restored from a previous run",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ResumeQueue()
				if err != nil {
					return err
				}
				if resp.Started {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue resumed")
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing to resume")
				}
				return nil
			})
		},
	}
}

func sizeLabel(path string) string {
	info := fileinfo.Lookup(path)
	if !info.Exists {
		return "missing"
	}
	return humanize.IBytes(uint64(info.Size))
}

func queuedAge(stamp string) string {
	if stamp == "" {
		return "-"
	}
	parsed, err := time.Parse(time.RFC3339Nano, stamp)
	if err != nil {
		return stamp
	}
	return humanize.Time(parsed)
}
