package main

import (
	"net/url"

	"github.com/spf13/cobra"

	"clipforge/internal/api"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var (
		statusFilters []string
		jsonFlag      bool
	)

	cmd := &cobra.Command{
		Use:   "jobs [job-id]",
		Short: "List jobs or show one job",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				var resp api.JobResponse
				if err := ctx.getJSON("/api/jobs/"+url.PathEscape(args[0]), &resp); err != nil {
					return err
				}
				if useJSON(jsonFlag) {
					return printJSON(cmd.OutOrStdout(), resp)
				}
				printJobTable(cmd.OutOrStdout(), resp.Job)
				printResults(cmd.OutOrStdout(), resp.Job.Results)
				return nil
			}

			path := "/api/jobs"
			if len(statusFilters) > 0 {
				query := url.Values{}
				for _, status := range statusFilters {
					query.Add("status", status)
				}
				path += "?" + query.Encode()
			}
			var resp api.JobListResponse
			if err := ctx.getJSON(path, &resp); err != nil {
				return err
			}
			if useJSON(jsonFlag) {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			printJobTable(cmd.OutOrStdout(), resp.Jobs...)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&statusFilters, "status", nil, "Filter by status (repeatable)")
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Emit JSON output")
	return cmd
}
