package tools

import (
	"context"
	"errors"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/raphaelgruber/bookpack/internal/llm"
	"github.com/raphaelgruber/bookpack/internal/models"
)

// AskBookInput defines the input schema for the ask_book tool.
type AskBookInput struct {
	BookID  string `json:"book_id" jsonschema:"Id of a book already passed to ingest_book"`
	Message string `json:"message" jsonschema:"The question to ask about the book"`
}

// NewAskBookHandler answers a question and appends the sources it drew on.
func NewAskBookHandler(deps *Dependencies) mcp.ToolHandlerFor[AskBookInput, any] {
	return func(ctx context.Context, req *mcp.CallToolRequest, input AskBookInput) (*mcp.CallToolResult, any, error) {
		answer, sources, err := deps.Chat.Ask(ctx, models.ChatRequest{BookID: input.BookID, Message: input.Message})
		switch {
		case errors.Is(err, models.ErrInvalidInput):
			return ErrorResult("book_id and message are required", ""), nil, nil
		case errors.Is(err, models.ErrNotIngested):
			return ErrorResult("Book not ingested yet", "Call ingest_book first"), nil, nil
		case errors.Is(err, llm.ErrFatalAPI):
			deps.Logger.Error("ask_book rejected by LLM provider", "book_id", input.BookID, "error", err)
			return ErrorResult("LLM provider rejected the request", "Check the LLM API key, credits and quota"), nil, nil
		case err != nil:
			deps.Logger.Error("ask_book failed", "book_id", input.BookID, "error", err)
			return ErrorResult("Answer generation failed", "Check the LLM provider configuration"), nil, nil
		}

		used := "none"
		if len(sources) > 0 {
			used = strings.Join(sources, ", ")
		}
		return TextResult(answer + "\n\nSources: " + used), nil, nil
	}
}
