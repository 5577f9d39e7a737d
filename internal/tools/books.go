package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/raphaelgruber/bookpack/internal/models"
)

// SearchBooksInput defines the input schema for the search_books tool.
type SearchBooksInput struct {
	Query string `json:"query" jsonschema:"Title or author to search for, at least 2 characters"`
}

// NewSearchBooksHandler lists matching books, one per line.
func NewSearchBooksHandler(deps *Dependencies) mcp.ToolHandlerFor[SearchBooksInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchBooksInput) (*mcp.CallToolResult, any, error) {
		if len(strings.TrimSpace(input.Query)) < 2 {
			return ErrorResult("Query too short", "Provide at least 2 characters"), nil, nil
		}

		results := deps.Books.Search(ctx, input.Query)
		deps.Logger.Info("search_books completed", "query", input.Query, "results", len(results))
		if len(results) == 0 {
			return TextResult("No books found"), nil, nil
		}

		lines := make([]string, 0, len(results))
		for _, r := range results {
			line := fmt.Sprintf("%s: %s by %s", r.ID, r.Title, r.Author)
			if r.Year > 0 {
				line += fmt.Sprintf(" (%d)", r.Year)
			}
			lines = append(lines, line)
		}
		return TextResult(FormatResults(lines)), nil, nil
	}
}

// BookDetailsInput defines the input schema for the book_details tool.
type BookDetailsInput struct {
	ID string `json:"id" jsonschema:"Book id from search_books"`
}

// NewBookDetailsHandler returns a book's metadata as JSON.
func NewBookDetailsHandler(deps *Dependencies) mcp.ToolHandlerFor[BookDetailsInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input BookDetailsInput) (*mcp.CallToolResult, any, error) {
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
		return JSONResult(details), nil, nil
	}
}
