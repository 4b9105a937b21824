package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"hoist/internal/fileinfo"
)

func newInfoCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:         "info <path>",
		Short:       "Describe a local file as the uploader sees it",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			info := fileinfo.Lookup(args[0])
			if asJSON {
				return writeJSON(cmd, info)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Name:      %s\n", info.Name)
			fmt.Fprintf(out, "Path:      %s\n", info.Path)
			fmt.Fprintf(out, "Exists:    %s\n", yesNo(info.Exists))
			if !info.Exists {
				return nil
			}
			fmt.Fprintf(out, "Size:      %s (%s bytes)\n", humanize.IBytes(uint64(info.Size)), humanize.Comma(info.Size))
			if info.Extension != "" {
				fmt.Fprintf(out, "Extension: %s\n", info.Extension)
			}
			if info.MimeType != "" {
				fmt.Fprintf(out, "MIME type: %s\n", info.MimeType)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
