package cli

import (
	"fmt"
	"strings"

	"github.com/raphaelgruber/bookpack/internal/models"
	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask <id> <question>",
	Short: "Ask a question about an ingested book",
	Long: `Ask a question about a book. The answer is streamed as it is generated
and grounded in the book's knowledge pack; the sources it drew on are
listed afterwards. Run 'bookpack ingest <id>' first.

Examples:
  bookpack ask OL45804W "Why don't the students try to escape?"
  bookpack ask OL45804W "What do critics think of the ending?"`,
	Args: cobra.MinimumNArgs(2),
	RunE: runAsk,
}

func runAsk(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	req := models.ChatRequest{
		BookID:  args[0],
		Message: strings.Join(args[1:], " "),
	}

	sources, err := apiClient.Chat(cmd.Context(), req, func(token string) error {
		_, err := fmt.Fprint(out, token)
		return err
	})
	if err != nil {
		return notFoundHint(fmt.Errorf("ask: %w", err), "run 'bookpack ingest "+req.BookID+"' first")
	}

	fmt.Fprintln(out)
	if len(sources) > 0 {
		fmt.Fprintf(out, "\nSources: %s\n", strings.Join(sources, ", "))
	}
	return nil
}
