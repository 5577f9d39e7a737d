package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/raphaelgruber/bookpack/internal/models"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var ingestWS bool

var ingestCmd = &cobra.Command{
	Use:   "ingest <id>",
	Short: "Build a book's knowledge pack",
	Long: `Build a book's knowledge pack from Goodreads, Reddit, The Guardian and
Literary Hub, following progress live. The book's metadata is looked up
first; a book that is already ingested finishes immediately.

Examples:
  bookpack ingest OL45804W
  bookpack ingest OL45804W --ws`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestWS, "ws", false, "follow progress over WebSocket instead of server-sent events")
}

// followFunc streams ingestion events for a book.
type followFunc func(ctx context.Context, meta models.BookMetadata, onEvent func(models.IngestionEvent) error) error

// errIngestFailed reports a failed terminal event.
var errIngestFailed = errors.New("ingestion failed")

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id := args[0]

	details, err := apiClient.Book(ctx, id)
	if err != nil {
		return notFoundHint(fmt.Errorf("get book: %w", err), "find ids with 'bookpack search'")
	}
	meta := details.Metadata
	meta.ID = id

	follow := followFunc(apiClient.Ingest)
	if ingestWS {
		follow = apiClient.IngestWebSocket
	}

	if term.IsTerminal(int(os.Stdout.Fd())) {
		return RunIngestProgress(ctx, meta, follow)
	}
	return printIngest(ctx, cmd.OutOrStdout(), meta, follow)
}

// printIngest follows ingestion with one plain line per event.
func printIngest(ctx context.Context, out io.Writer, meta models.BookMetadata, follow followFunc) error {
	fmt.Fprintf(out, "Ingesting %s by %s\n", meta.Title, meta.Author)

	var final *models.IngestionEvent
	err := follow(ctx, meta, func(e models.IngestionEvent) error {
		fmt.Fprintf(out, "%-9s %s\n", "["+string(e.Status)+"]", e.Step)
		if e.Quote != "" && e.Step != models.StepReady {
			fmt.Fprintf(out, "          %q\n", e.Quote)
		}
		if e.Terminal() {
			final = &e
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	if final == nil {
		return fmt.Errorf("ingest: stream ended before the book was ready")
	}
	if final.Status == models.StatusFailed {
		return fmt.Errorf("%w: %s", errIngestFailed, final.Step)
	}

	fmt.Fprint(out, "\n"+renderSummary(*final))
	return nil
}

// renderSummary describes a Ready event: its sources and landscape.
func renderSummary(e models.IngestionEvent) string {
	var b strings.Builder
	if len(e.Sources) > 0 {
		fmt.Fprintf(&b, "Sources: %s\n", strings.Join(e.Sources, ", "))
	} else {
		b.WriteString("Sources: none found\n")
	}
	if e.Landscape != nil {
		section := func(title, text string) {
			if text != "" {
				fmt.Fprintf(&b, "\n%s\n  %s\n", title, text)
			}
		}
		section("Critic consensus", e.Landscape.CriticConsensus)
		section("Reader sentiment", e.Landscape.ReaderSentiment)
		section("The debate", e.Landscape.TheDebate)
	}
	return b.String()
}
