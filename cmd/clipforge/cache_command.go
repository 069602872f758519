package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"clipforge/internal/api"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the result cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newCacheStatsCommand(ctx))
	cmd.AddCommand(newCacheClearCommand(ctx))
	return cmd
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	var jsonFlag bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache entry count and hit rate",
		RunE: func(cmd *cobra.Command, args []string) error {
			var stats api.CacheStatsView
			if err := ctx.getJSON("/api/cache/stats", &stats); err != nil {
				return err
			}
			if useJSON(jsonFlag) {
				return printJSON(cmd.OutOrStdout(), stats)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Entries: %d\nHits:    %d\nMisses:  %d\n",
				stats.Entries, stats.Hits, stats.Misses)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Emit JSON output")
	return cmd
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached result",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.deleteJSON("/api/cache", nil); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared")
			return nil
		},
	}
	return cmd
}
