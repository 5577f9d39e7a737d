package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search books by title or author",
	Long: `Search Open Library and Google Books. Returns up to 8 books with the ids
the other commands take.

Examples:
  bookpack search "never let me go"
  bookpack search ishiguro`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	results, err := apiClient.Search(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	if len(results) == 0 {
		fmt.Fprintln(out, "No books found.")
		return nil
	}

	fmt.Fprintf(out, "%-14s %-6s %s\n", "ID", "YEAR", "TITLE")
	for _, r := range results {
		year := ""
		if r.Year > 0 {
			year = fmt.Sprint(r.Year)
		}
		fmt.Fprintf(out, "%-14s %-6s %s by %s\n", r.ID, year, r.Title, r.Author)
		if verbose && r.Cover != "" {
			fmt.Fprintf(out, "%-14s %-6s %s\n", "", "", r.Cover)
		}
	}
	return nil
}
