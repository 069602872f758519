package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/mattn/go-isatty"

	"clipforge/internal/api"
)

// useJSON reports whether output should be machine-readable: either the
// --json flag was set or stdout is not a terminal.
func useJSON(jsonFlag bool) bool {
	if jsonFlag {
		return true
	}
	fd := os.Stdout.Fd()
	return !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd)
}

func printJSON(w io.Writer, payload any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(payload)
}

func jobRow(job api.JobView) []string {
	return []string{
		job.ID,
		job.Status,
		job.Stage,
		fmt.Sprintf("%d%%", job.Progress),
		job.ErrorMessage,
	}
}

func printJobTable(w io.Writer, jobs ...api.JobView) {
	rows := make([][]string, 0, len(jobs))
	for _, job := range jobs {
		rows = append(rows, jobRow(job))
	}
	fmt.Fprintln(w, renderTable(
		[]string{"ID", "STATUS", "STAGE", "PROGRESS", "ERROR"},
		rows,
		3,
	))
}

func batchRow(batch api.BatchView) []string {
	return []string{
		batch.ID,
		batch.Kind,
		batch.Status,
		fmt.Sprintf("%d", batch.TotalJobs),
		fmt.Sprintf("%d", batch.CompletedJobs),
		fmt.Sprintf("%d", batch.FailedJobs),
	}
}

func printBatchTable(w io.Writer, batches ...api.BatchView) {
	rows := make([][]string, 0, len(batches))
	for _, batch := range batches {
		rows = append(rows, batchRow(batch))
	}
	fmt.Fprintln(w, renderTable(
		[]string{"ID", "KIND", "STATUS", "JOBS", "COMPLETED", "FAILED"},
		rows,
		3, 4, 5,
	))
}

func printBatchDetail(w io.Writer, batch api.BatchView) {
	printBatchTable(w, batch)
	if len(batch.Jobs) > 0 {
		printJobTable(w, batch.Jobs...)
	}
}

func printResults(w io.Writer, results map[string]api.ArtifactView) {
	if len(results) == 0 {
		return
	}
	keys := make([]string, 0, len(results))
	for key := range results {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	fmt.Fprintln(w, "Results:")
	for _, key := range keys {
		fmt.Fprintf(w, "  %-10s %s\n", key, results[key].Path)
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
