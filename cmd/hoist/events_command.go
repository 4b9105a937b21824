package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"hoist/internal/events"
	"hoist/internal/ipc"
)

const eventsPollInterval = 500 * time.Millisecond

func newEventsCommand(ctx *commandContext) *cobra.Command {
	var follow bool
	var limit int
	var typeFilter string
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show recent upload events",
		RunE: func(cmd *cobra.Command, args []string) error {
			var eventType events.Type
			if typeFilter != "" {
				parsed, err := events.ParseType(typeFilter)
				if err != nil {
					return err
				}
				eventType = parsed
			}
			return ctx.withClient(func(client *ipc.Client) error {
				out := cmd.OutOrStdout()
				var since uint64
				for {
					resp, err := client.Events(since, limit, eventType)
					if err != nil {
						return err
					}
					for _, evt := range resp.Events {
						printEvent(out, evt)
					}
					since = resp.Next
					if !follow {
						return nil
					}
					select {
					case <-cmd.Context().Done():
						return nil
					case <-time.After(eventsPollInterval):
					}
				}
			})
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep polling for new events")
	cmd.Flags().IntVarP(&limit, "limit", "n", 100, "Maximum events per page")
	cmd.Flags().StringVar(&typeFilter, "type", "", "Only show one event type (progress, completed, error, cancelled)")
	return cmd
}

func printEvent(out io.Writer, evt events.Event) {
	stamp := evt.Timestamp.Local().Format("15:04:05")
	switch evt.Type {
	case events.TypeProgress:
		if evt.Progress == events.UnknownProgress {
			fmt.Fprintf(out, "%s %-9s %s uploading\n", stamp, evt.Type, evt.ID)
			return
		}
		fmt.Fprintf(out, "%s %-9s %s %d%%\n", stamp, evt.Type, evt.ID, evt.Progress)
	case events.TypeCompleted:
		fmt.Fprintf(out, "%s %-9s %s HTTP %d\n", stamp, evt.Type, evt.ID, evt.StatusCode)
	case events.TypeError:
		fmt.Fprintf(out, "%s %-9s %s %s\n", stamp, evt.Type, evt.ID, evt.Error)
	default:
		fmt.Fprintf(out, "%s %-9s %s\n", stamp, evt.Type, evt.ID)
	}
}
