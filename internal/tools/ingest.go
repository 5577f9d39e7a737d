package tools

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/raphaelgruber/bookpack/internal/models"
)

// IngestBookInput defines the input schema for the ingest_book tool.
type IngestBookInput struct {
	ID string `json:"id" jsonschema:"Book id from search_books"`
}

// IngestSummary is what ingest_book reports about a finished pack.
type IngestSummary struct {
	BookID          string                       `json:"book_id"`
	Title           string                       `json:"title"`
	Author          string                       `json:"author"`
	Sources         []string                     `json:"sources"`
	ChunkCount      int                          `json:"chunk_count"`
	Landscape       models.InterpretiveLandscape `json:"landscape"`
	QuestionPrompts []string                     `json:"question_prompts"`
}

// NewIngestBookHandler resolves the book's metadata, then runs ingestion
// to completion. An already ingested book returns immediately.
func NewIngestBookHandler(deps *Dependencies) mcp.ToolHandlerFor[IngestBookInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input IngestBookInput) (*mcp.CallToolResult, any, error) {
		if input.ID == "" {
			return ErrorResult("ID cannot be empty", "Use search_books to find an id"), nil, nil
		}

		details, err := deps.Books.Details(ctx, input.ID)
		if errors.Is(err, models.ErrNotFound) {
			return ErrorResult("Book not found", "Use search_books to find a valid id"), nil, nil
		}
		if err != nil {
			deps.Logger.Error("book lookup failed", "book_id", input.ID, "error", err)
			return ErrorResult("Book lookup failed", "Catalogs may be unavailable"), nil, nil
		}

		meta := details.Metadata
		meta.ID = input.ID
		k, events, err := deps.Ingest.Run(ctx, meta)
		if err != nil {
			deps.Logger.Error("ingest_book failed", "book_id", input.ID, "events", len(events), "error", err)
			return ErrorResult("Ingestion failed", "Retry later; sources may be unavailable"), nil, nil
		}

		deps.Logger.Info("ingest_book completed", "book_id", input.ID, "chunks", k.ChunkCount, "sources", k.Sources)
		return JSONResult(IngestSummary{
			BookID:          input.ID,
			Title:           k.Metadata.Title,
			Author:          k.Metadata.Author,
			Sources:         k.Sources,
			ChunkCount:      k.ChunkCount,
			Landscape:       k.InterpretiveLandscape,
			QuestionPrompts: k.QuestionPrompts,
		}), nil, nil
	}
}
