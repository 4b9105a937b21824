package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"hoist/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the daemon log",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := cfg.DaemonLogPath()
			out := cmd.OutOrStdout()

			opts := logs.TailOptions{Offset: -1, Limit: lines}
			for {
				result, err := logs.Tail(cmd.Context(), path, opts)
				if err != nil {
					if errors.Is(err, cmd.Context().Err()) {
						return nil
					}
					return err
				}
				for _, line := range result.Lines {
					fmt.Fprintln(out, line)
				}
				if !follow {
					return nil
				}
				opts = logs.TailOptions{Offset: result.Offset, Wait: 5 * time.Second}
			}
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new log lines")
	return cmd
}
