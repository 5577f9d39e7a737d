package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs [run-id]",
	Short: "List or inspect ingestion runs",
	Long: `List the server's recent ingestion runs or inspect one by id.

Examples:
  bookpack jobs           # List all runs
  bookpack jobs abc123    # Show details for run abc123`,
	Args: cobra.MaximumNArgs(1),
	RunE: runJobs,
}

func runJobs(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	runs, err := apiClient.Jobs(cmd.Context())
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}

	if len(args) == 1 {
		for _, run := range runs {
			if run.ID != args[0] {
				continue
			}
			fmt.Fprintf(out, "Run: %s\n", run.ID)
			fmt.Fprintf(out, "  Book: %s (%s)\n", run.Title, run.BookID)
			fmt.Fprintf(out, "  Status: %s\n", run.Status)
			if run.Step != "" {
				fmt.Fprintf(out, "  Last step: %s\n", run.Step)
			}
			fmt.Fprintf(out, "  Started: %s\n", run.StartedAt.Format(time.RFC3339))
			if run.CompletedAt != nil {
				fmt.Fprintf(out, "  Completed: %s\n", run.CompletedAt.Format(time.RFC3339))
				fmt.Fprintf(out, "  Duration: %s\n", run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond))
			}
			fmt.Fprintf(out, "  Chunks: %d\n", run.ChunkCount)
			if len(run.Sources) > 0 {
				fmt.Fprintf(out, "  Sources: %v\n", run.Sources)
			}
			if run.Error != "" {
				fmt.Fprintf(out, "  Error: %s\n", run.Error)
			}
			return nil
		}
		return fmt.Errorf("run not found: %s", args[0])
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "No ingestion runs")
		return nil
	}

	fmt.Fprintf(out, "%-10s %-14s %-10s %-7s %-9s %s\n", "ID", "BOOK", "STATUS", "CHUNKS", "STARTED", "TITLE")
	fmt.Fprintln(out, "------------------------------------------------------------------------")
	for _, run := range runs {
		fmt.Fprintf(out, "%-10s %-14s %-10s %-7d %-9s %s\n",
			run.ID, run.BookID, run.Status, run.ChunkCount, run.StartedAt.Local().Format("15:04:05"), run.Title)
	}
	return nil
}
