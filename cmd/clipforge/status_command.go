package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"clipforge/internal/api"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonFlag bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status and job counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			var status api.DaemonStatus
			if err := ctx.getJSON("/api/status", &status); err != nil {
				return err
			}
			if useJSON(jsonFlag) {
				return printJSON(cmd.OutOrStdout(), status)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Running:  %t (pid %d)\n", status.Running, status.PID)
			fmt.Fprintf(out, "Queue DB: %s\n", status.QueueDBPath)
			fmt.Fprintf(out, "Lock:     %s\n", status.LockFilePath)

			statuses := make([]string, 0, len(status.JobStats))
			for name := range status.JobStats {
				statuses = append(statuses, name)
			}
			sort.Strings(statuses)
			fmt.Fprintln(out, "Jobs:")
			for _, name := range statuses {
				fmt.Fprintf(out, "  %-12s %d\n", name, status.JobStats[name])
			}
			fmt.Fprintf(out, "Cache:    %d entries, %d hits, %d misses\n",
				status.Cache.Entries, status.Cache.Hits, status.Cache.Misses)
			if len(status.Dependencies) > 0 {
				fmt.Fprintln(out, "Tools:")
				for _, dep := range status.Dependencies {
					state := "ok"
					if !dep.Available {
						state = "missing"
						if dep.Optional {
							state = "missing (optional)"
						}
					}
					fmt.Fprintf(out, "  %-12s %s\n", dep.Name, state)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Emit JSON output")
	return cmd
}
