package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/raphaelgruber/bookpack/internal/models"
	"github.com/spf13/cobra"
)

var bookCmd = &cobra.Command{
	Use:   "book <id>",
	Short: "Show a book's details",
	Long: `Show a book's metadata. Books that are already ingested are served from
their knowledge pack; others are looked up in the catalogs without ingesting.

Examples:
  bookpack book OL45804W
  bookpack book gb_zyTCAlFPjgYC`,
	Args: cobra.ExactArgs(1),
	RunE: runBook,
}

func runBook(cmd *cobra.Command, args []string) error {
	details, err := apiClient.Book(cmd.Context(), args[0])
	if err != nil {
		return notFoundHint(fmt.Errorf("get book: %w", err), "find ids with 'bookpack search'")
	}
	printBook(cmd.OutOrStdout(), details)
	return nil
}

func printBook(out io.Writer, details *models.BookDetails) {
	m := details.Metadata
	fmt.Fprintf(out, "%s\n", m.Title)
	fmt.Fprintf(out, "  by %s", m.Author)
	if m.Year > 0 {
		fmt.Fprintf(out, " (%d)", m.Year)
	}
	fmt.Fprintln(out)

	fmt.Fprintf(out, "  ID: %s [%s]\n", m.ID, details.Status)
	if m.GoodreadsRating != nil {
		fmt.Fprintf(out, "  Rating: %.2f", *m.GoodreadsRating)
		if m.RatingsCount != nil {
			fmt.Fprintf(out, " from %d ratings", *m.RatingsCount)
		}
		fmt.Fprintln(out)
	}
	if m.PageCount > 0 {
		fmt.Fprintf(out, "  Pages: %d\n", m.PageCount)
	}
	if len(m.Genre) > 0 {
		fmt.Fprintf(out, "  Genres: %s\n", strings.Join(m.Genre, ", "))
	}
	if m.Synopsis != "" {
		fmt.Fprintf(out, "\n%s\n", m.Synopsis)
	}
}
