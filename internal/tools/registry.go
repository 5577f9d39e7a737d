package tools

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterAll registers all tools with the MCP server.
func RegisterAll(server *mcp.Server, deps *Dependencies) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_books",
		Description: "Search Open Library and Google Books by title or author; returns up to 8 books with their ids",
	}, NewSearchBooksHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "book_details",
		Description: "Get a book's metadata by id without ingesting it",
	}, NewBookDetailsHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ingest_book",
		Description: "Build a book's knowledge pack from Goodreads, Reddit, The Guardian and Literary Hub; returns sources, chunk count, interpretive landscape and suggested questions",
	}, NewIngestBookHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask_book",
		Description: "Ask a question about an ingested book; the answer is grounded in the book's knowledge pack",
	}, NewAskBookHandler(deps))
}
