package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/raphaelgruber/bookpack/internal/metrics"
	"github.com/raphaelgruber/bookpack/internal/llm"
	"github.com/raphaelgruber/bookpack/internal/models"
)

type PlainOutput struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

type SearchInput struct {
	Query string `query:"q" doc:"Free-text title or author query; under two characters returns no results"`
}

type SearchOutput struct {
	Body []models.SearchResult
}

type BookInput struct {
	ID string `path:"id" doc:"Open Library work id or gb_-prefixed Google Books volume id"`
}

type BookOutput struct {
	Body models.BookDetails
}

type IngestInput struct {
	ID       string `path:"id" doc:"Book id"`
	Metadata string `query:"metadata" doc:"JSON-encoded book metadata from the details lookup"`
}

type ChatBody struct {
	BookID  string               `json:"bookId,omitempty" doc:"Id of an ingested book"`
	Message string               `json:"message,omitempty" doc:"The reader's question"`
	History []models.ChatMessage `json:"history,omitempty" doc:"Earlier turns, oldest first"`
}

type ChatInput struct {
	Body ChatBody
}

type JobsOutput struct {
	Body []models.IngestRun
}

type StatsOutput struct {
	Body metrics.Snapshot
}

// Register adds every huma operation to api.
func (h *Handler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "HealthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Tags:        []string{"Health"},
	}, func(ctx context.Context, input *struct{}) (*PlainOutput, error) {
		return &PlainOutput{ContentType: "text/plain", Body: []byte("ok")}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "SearchBooks",
		Method:      http.MethodGet,
		Path:        "/api/search",
		Summary:     "Search books",
		Description: "Search both catalogs and return at most eight merged results",
		Tags:        []string{"Books"},
	}, func(ctx context.Context, input *SearchInput) (*SearchOutput, error) {
		return &SearchOutput{Body: h.books.Search(ctx, input.Query)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "GetBook",
		Method:      http.MethodGet,
		Path:        "/api/book/{id}",
		Summary:     "Get book details",
		Description: "Return the ingested pack's metadata, or fresh catalog metadata without ingesting",
		Tags:        []string{"Books"},
	}, h.getBook)

	huma.Register(api, huma.Operation{
		OperationID: "IngestBook",
		Method:      http.MethodGet,
		Path:        "/api/ingest/{id}",
		Summary:     "Stream ingestion progress",
		Description: "Build the book's knowledge pack, streaming progress as server-sent events",
		Tags:        []string{"Ingestion"},
	}, h.ingestStream)

	huma.Register(api, huma.Operation{
		OperationID: "Chat",
		Method:      http.MethodPost,
		Path:        "/api/chat",
		Summary:     "Ask about a book",
		Description: "Stream a plain-text answer; the " + SourcesHeader + " header lists the sources used",
		Tags:        []string{"Chat"},
	}, h.chatStream)

	huma.Register(api, huma.Operation{
		OperationID: "ListJobs",
		Method:      http.MethodGet,
		Path:        "/api/jobs",
		Summary:     "List ingestion runs",
		Tags:        []string{"Ingestion"},
	}, func(ctx context.Context, input *struct{}) (*JobsOutput, error) {
		return &JobsOutput{Body: h.ingest.Runs()}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "GetStats",
		Method:      http.MethodGet,
		Path:        "/api/stats",
		Summary:     "Get statistics",
		Description: "Scrape timings and yields per source, LLM call counts and latency",
		Tags:        []string{"Stats"},
	}, func(ctx context.Context, input *struct{}) (*StatsOutput, error) {
		return &StatsOutput{Body: h.stats.Snapshot()}, nil
	})
}

func (h *Handler) getBook(ctx context.Context, input *BookInput) (*BookOutput, error) {
	details, err := h.books.Details(ctx, input.ID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, huma.Error404NotFound("Book not found")
	}
	if err != nil {
		h.logger.Error("book lookup failed", "book_id", input.ID, "error", err)
		return nil, huma.Error500InternalServerError("failed to fetch book", err)
	}
	return &BookOutput{Body: *details}, nil
}

func (h *Handler) ingestStream(ctx context.Context, input *IngestInput) (*huma.StreamResponse, error) {
	sub := h.ingest.Subscribe(partialMetadata(input.ID, input.Metadata))

	return &huma.StreamResponse{Body: func(hctx huma.Context) {
		defer sub.Close()

		hctx.SetHeader("Content-Type", "text/event-stream")
		hctx.SetHeader("Cache-Control", "no-cache")
		hctx.SetHeader("Connection", "keep-alive")
		w := hctx.BodyWriter()

		for {
			select {
			case <-hctx.Context().Done():
				h.logger.Debug("ingestion stream consumer left", "book_id", input.ID)
				return
			case e, ok := <-sub.Events:
				if !ok {
					return
				}
				if err := writeEvent(w, e); err != nil {
					h.logger.Debug("ingestion stream write failed", "book_id", input.ID, "error", err)
					return
				}
			}
		}
	}}, nil
}

// writeEvent frames e as one server-sent event.
func writeEvent(w io.Writer, e models.IngestionEvent) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	flush(w)
	return nil
}

func (h *Handler) chatStream(ctx context.Context, input *ChatInput) (*huma.StreamResponse, error) {
	turn, err := h.chat.Prepare(models.ChatRequest{
		BookID:  input.Body.BookID,
		Message: input.Body.Message,
		History: input.Body.History,
	})
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		return nil, huma.Error400BadRequest("bookId and message required")
	case errors.Is(err, models.ErrNotIngested):
		return nil, huma.Error404NotFound("Book not ingested yet. Please visit the book page first.")
	case err != nil:
		return nil, huma.Error500InternalServerError("failed to prepare chat", err)
	}

	sources := turn.Sources
	if sources == nil {
		sources = []string{}
	}
	header, err := json.Marshal(sources)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to encode sources", err)
	}

	return &huma.StreamResponse{Body: func(hctx huma.Context) {
		hctx.SetHeader("Content-Type", "text/plain; charset=utf-8")
		hctx.SetHeader(SourcesHeader, string(header))
		w := hctx.BodyWriter()

		err := turn.Stream(hctx.Context(), func(token string) error {
			if _, err := io.WriteString(w, token); err != nil {
				return err
			}
			flush(w)
			return nil
		})
		switch {
		case errors.Is(err, llm.ErrFatalAPI):
			h.logger.Error("chat stream failed, check LLM credentials and quota", "book_id", turn.BookID, "error", err)
		case err != nil:
			h.logger.Warn("chat stream failed", "book_id", turn.BookID, "error", err)
		}
	}}, nil
}

func flush(w io.Writer) {
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
