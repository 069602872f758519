package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"clipforge/internal/api"
	"clipforge/internal/queue"
)

func newBatchCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Manage render batches",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newBatchCreateCommand(ctx))
	cmd.AddCommand(newBatchListCommand(ctx))
	cmd.AddCommand(newBatchShowCommand(ctx))
	cmd.AddCommand(newBatchCancelCommand(ctx))
	cmd.AddCommand(newBatchRetryCommand(ctx))
	cmd.AddCommand(newBatchDeleteCommand(ctx))
	return cmd
}

func newBatchCreateCommand(ctx *commandContext) *cobra.Command {
	var jsonFlag bool

	cmd := &cobra.Command{
		Use:   "create <requests.json>",
		Short: "Create a batch from a JSON file of render requests",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read requests: %w", err)
			}
			var requests []queue.Request
			if err := json.Unmarshal(data, &requests); err != nil {
				return fmt.Errorf("parse requests: %w", err)
			}

			var resp api.BatchResponse
			if err := ctx.postJSON("/api/batches", map[string]any{"requests": requests}, &resp); err != nil {
				return err
			}
			if useJSON(jsonFlag) {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Batch %s queued with %d jobs\n", resp.Batch.ID, resp.Batch.TotalJobs)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Emit JSON output")
	return cmd
}

func newBatchListCommand(ctx *commandContext) *cobra.Command {
	var (
		offset   int
		limit    int
		jsonFlag bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List batches",
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			query.Set("offset", strconv.Itoa(offset))
			query.Set("limit", strconv.Itoa(limit))

			var resp api.BatchListResponse
			if err := ctx.getJSON("/api/batches?"+query.Encode(), &resp); err != nil {
				return err
			}
			if useJSON(jsonFlag) {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			printBatchTable(cmd.OutOrStdout(), resp.Batches...)
			fmt.Fprintf(cmd.OutOrStdout(), "%d of %d batches\n", len(resp.Batches), resp.Total)
			return nil
		},
	}

	cmd.Flags().IntVar(&offset, "offset", 0, "Pagination offset")
	cmd.Flags().IntVar(&limit, "limit", 20, "Page size")
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Emit JSON output")
	return cmd
}

func newBatchShowCommand(ctx *commandContext) *cobra.Command {
	var jsonFlag bool

	cmd := &cobra.Command{
		Use:   "show <batch-id>",
		Short: "Show a batch and its jobs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp api.BatchResponse
			if err := ctx.getJSON("/api/batches/"+url.PathEscape(args[0]), &resp); err != nil {
				return err
			}
			if useJSON(jsonFlag) {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			printBatchDetail(cmd.OutOrStdout(), resp.Batch)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Emit JSON output")
	return cmd
}

func newBatchCancelCommand(ctx *commandContext) *cobra.Command {
	var jsonFlag bool

	cmd := &cobra.Command{
		Use:   "cancel <batch-id>",
		Short: "Cancel a running batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp api.BatchResponse
			if err := ctx.postJSON("/api/batches/"+url.PathEscape(args[0])+"/cancel", nil, &resp); err != nil {
				return err
			}
			if useJSON(jsonFlag) {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Batch %s cancelled\n", resp.Batch.ID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Emit JSON output")
	return cmd
}

func newBatchRetryCommand(ctx *commandContext) *cobra.Command {
	var jsonFlag bool

	cmd := &cobra.Command{
		Use:   "retry <batch-id>",
		Short: "Requeue a batch's failed jobs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp api.BatchResponse
			if err := ctx.postJSON("/api/batches/"+url.PathEscape(args[0])+"/retry", nil, &resp); err != nil {
				return err
			}
			if useJSON(jsonFlag) {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Batch %s retrying failed jobs\n", resp.Batch.ID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Emit JSON output")
	return cmd
}

func newBatchDeleteCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <batch-id>",
		Short: "Delete a finished batch and its jobs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ctx.deleteJSON("/api/batches/"+url.PathEscape(args[0]), nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Batch %s deleted\n", args[0])
			return nil
		},
	}
	return cmd
}
