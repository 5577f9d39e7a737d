// Package tools provides MCP tool handlers and registration.
package tools

import (
	"context"
	"log/slog"

	"github.com/raphaelgruber/bookpack/internal/models"
)

// Books finds books and their details.
type Books interface {
	Search(ctx context.Context, query string) []models.SearchResult
	Details(ctx context.Context, id string) (*models.BookDetails, error)
}

// Ingester runs ingestion to completion.
type Ingester interface {
	Run(ctx context.Context, partial models.BookMetadata) (*models.BookKnowledge, []models.IngestionEvent, error)
}

// Asker answers a question about an ingested book.
type Asker interface {
	Ask(ctx context.Context, req models.ChatRequest) (string, []string, error)
}

// Dependencies holds shared services for tool handlers.
// Passed to handler factories via closure capture.
type Dependencies struct {
	Books  Books
	Ingest Ingester
	Chat   Asker
	Logger *slog.Logger
}
