package cli

import (
	"fmt"
	"io"

	"github.com/raphaelgruber/bookpack/internal/metrics"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show server statistics",
	Long: `Show server runtime statistics: scrape timings and chunk yields per
source, catalog calls, and LLM call counts, latency and token usage.

Examples:
  bookpack stats`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	snap, err := apiClient.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("get server stats: %w", err)
	}
	printServerStats(cmd.OutOrStdout(), snap)
	return nil
}

// printServerStats displays server runtime statistics.
func printServerStats(out io.Writer, snap *metrics.Snapshot) {
	fmt.Fprintf(out, "Server Statistics (in-memory, since restart)\n")
	fmt.Fprintf(out, "═══════════════════════════════════════════════\n")
	fmt.Fprintf(out, "Uptime: %.1f seconds\n", snap.UptimeSeconds)

	if len(snap.Operations) == 0 {
		fmt.Fprintln(out, "\nNo operations recorded yet.")
		return
	}

	for _, name := range snap.Names() {
		op := snap.Operations[name]
		fmt.Fprintf(out, "\n%s:\n", name)
		fmt.Fprintf(out, "  Calls: %d, Failures: %d, Total: %dms\n", op.Count, op.Failures, op.TotalTimeMs)
		fmt.Fprintf(out, "  Time: avg %.1fms, min %dms, max %dms\n", op.AvgTimeMs, op.MinTimeMs, op.MaxTimeMs)
		if op.TotalItems > 0 {
			fmt.Fprintf(out, "  Items: %d total, %.1f per call\n", op.TotalItems, float64(op.TotalItems)/float64(op.Count))
		}
		if op.TotalInputTokens != nil && op.TotalOutputTokens != nil {
			fmt.Fprintf(out, "  Tokens: %d in, %d out\n", *op.TotalInputTokens, *op.TotalOutputTokens)
		}
	}
}
