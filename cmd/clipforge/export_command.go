package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"clipforge/internal/api"
	"clipforge/internal/queue"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var (
		format   string
		preset   string
		jsonFlag bool
	)

	cmd := &cobra.Command{
		Use:   "export <video-id> [video-id...]",
		Short: "Re-encode finished videos as an export batch",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			specs := make([]queue.ExportSpec, 0, len(args))
			for _, videoID := range args {
				specs = append(specs, queue.ExportSpec{
					VideoID: videoID,
					Format:  format,
					Preset:  preset,
				})
			}

			var resp api.BatchResponse
			if err := ctx.postJSON("/api/exports", map[string]any{"specs": specs}, &resp); err != nil {
				return err
			}
			if useJSON(jsonFlag) {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Export batch %s queued with %d jobs\n", resp.Batch.ID, resp.Batch.TotalJobs)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "mp4", "Output container format")
	cmd.Flags().StringVar(&preset, "preset", "", "Output preset (1080p, 720p, draft)")
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Emit JSON output")
	return cmd
}
