package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"hoist/internal/ipc"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, queue, and storage status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				status, err := client.Status()
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, status)
				}
				out := cmd.OutOrStdout()
				for _, line := range renderStatus(status, shouldColorize(out)) {
					fmt.Fprintln(out, line)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func renderStatus(status *ipc.StatusResponse, colorize bool) []string {
	lines := renderSectionHeader("Daemon", colorize)
	if status.Running {
		lines = append(lines, renderStatusLine("Daemon", statusOK, "running (pid "+strconv.Itoa(status.PID)+")", colorize))
	} else {
		lines = append(lines, renderStatusLine("Daemon", statusError, "not running", colorize))
	}
	if status.APIAddress != "" {
		lines = append(lines, renderStatusLine("HTTP API", statusInfo, status.APIAddress, colorize))
	}

	uploads := status.Uploads
	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Uploads", colorize)...)
	queueKind := statusInfo
	queueMessage := fmt.Sprintf("%d queued", uploads.QueueLength)
	if uploads.Paused && uploads.QueueLength > 0 {
		queueKind = statusWarn
		queueMessage += " (paused; run `hoist queue resume`)"
	}
	lines = append(lines, renderStatusLine("Queue", queueKind, queueMessage, colorize))
	if uploads.InFlight != "" {
		lines = append(lines, renderStatusLine("In flight", statusOK, uploads.InFlight, colorize))
	}
	active := "none"
	if len(uploads.Active) > 0 {
		active = strings.Join(uploads.Active, ", ")
	}
	lines = append(lines, renderStatusLine("Transfers", statusInfo, active, colorize))

	storageKind := statusOK
	storageMessage := uploads.Storage.Backend
	if uploads.Storage.Location != "" {
		storageMessage += " @ " + uploads.Storage.Location
	}
	if !uploads.Storage.Ready {
		storageKind = statusError
		if uploads.Storage.Detail != "" {
			storageMessage += ": " + uploads.Storage.Detail
		}
	}
	lines = append(lines, renderStatusLine("Storage", storageKind, storageMessage, colorize))
	return lines
}
