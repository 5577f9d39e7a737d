// Package api exposes bookpack over HTTP: huma operations for search,
// details, ingestion streams, chat and stats, plus a WebSocket ingestion
// stream on the chi router.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/raphaelgruber/bookpack/internal/metrics"
	"github.com/raphaelgruber/bookpack/internal/models"
	"github.com/raphaelgruber/bookpack/internal/service"
)

// SourcesHeader carries the JSON array of sources behind a chat reply.
const SourcesHeader = "X-Sources"

// Books finds books and their details.
type Books interface {
	Search(ctx context.Context, query string) []models.SearchResult
	Details(ctx context.Context, id string) (*models.BookDetails, error)
}

// Ingestion starts and follows ingestion runs.
type Ingestion interface {
	Subscribe(partial models.BookMetadata) *service.Subscription
	Runs() []models.IngestRun
}

// Chat prepares chat turns against ingested books.
type Chat interface {
	Prepare(req models.ChatRequest) (*service.ChatTurn, error)
}

// Stats reports runtime statistics.
type Stats interface {
	Snapshot() metrics.Snapshot
}

// Handler serves the bookpack HTTP API.
type Handler struct {
	books  Books
	ingest Ingestion
	chat   Chat
	stats  Stats
	logger *slog.Logger
}

// NewHandler creates a handler over the given services.
func NewHandler(books Books, ingest Ingestion, chat Chat, stats Stats, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{books: books, ingest: ingest, chat: chat, stats: stats, logger: logger}
}

// NewRouter builds the chi router with CORS, the huma operations and the
// WebSocket route.
func NewRouter(h *Handler, version string) http.Handler {
	router := chi.NewRouter()

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "HEAD", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Accept", "Content-Type"},
		ExposedHeaders:   []string{SourcesHeader},
		AllowCredentials: false,
	}))

	config := huma.DefaultConfig("Bookpack API", version)
	config.OpenAPI.Info.Description = "Search books, build knowledge packs from public commentary and chat about them."
	config.DocsPath = "/docs"
	api := humachi.New(router, config)

	h.Register(api)
	router.Get("/api/ingest/{id}/ws", h.IngestWebSocket)

	return router
}

// partialMetadata decodes the metadata query parameter. The path id always
// wins over any id inside the payload. Unparsable payloads yield a record
// with only the id, which ingestion rejects as missing metadata.
func partialMetadata(id, raw string) models.BookMetadata {
	var meta models.BookMetadata
	if raw == "" || json.Unmarshal([]byte(raw), &meta) != nil {
		return models.BookMetadata{ID: id}
	}
	meta.ID = id
	return meta
}
