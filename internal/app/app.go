// Package app wires the bookpack services together.
// It serves as dependency injection for the HTTP and MCP entry points.
package app

import (
	"log/slog"

	"github.com/raphaelgruber/bookpack/internal/catalog"
	"github.com/raphaelgruber/bookpack/internal/config"
	"github.com/raphaelgruber/bookpack/internal/fetch"
	"github.com/raphaelgruber/bookpack/internal/llm"
	"github.com/raphaelgruber/bookpack/internal/metrics"
	"github.com/raphaelgruber/bookpack/internal/scraper"
	"github.com/raphaelgruber/bookpack/internal/service"
	"github.com/raphaelgruber/bookpack/internal/store"
)

// App holds every service an entry point needs.
type App struct {
	Books   *service.BookService
	Ingest  *service.IngestService
	Runner  *service.IngestRunner
	Chat    *service.ChatService
	Store   store.KnowledgeStore
	Metrics *metrics.Collector
}

// New creates the services from configuration. It fails only for an unknown
// LLM provider; a missing API key leaves the LLM unavailable, so landscapes
// fall back and chat turns fail.
func New(cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	mc := metrics.NewCollector()

	model, err := llm.NewModel(cfg, mc)
	if err != nil {
		return nil, err
	}
	if !model.Available() {
		logger.Warn("LLM API key not set, landscapes fall back and chat is unavailable", "provider", cfg.LLMProvider)
	}

	client := fetch.NewClient()
	st := store.New(cfg.StoreSize, cfg.StoreTTL)

	cat := catalog.New(catalog.Options{
		GoogleAPIKey: cfg.GoogleBooksAPIKey,
		Client:       client,
		Logger:       logger.With("component", "catalog"),
		Metrics:      mc,
	})

	scrapers := scraper.All(scraper.Config{GuardianAPIKey: cfg.GuardianAPIKey}, scraper.Options{
		Client:  client,
		Logger:  logger.With("component", "scraper"),
		Metrics: mc,
	})

	synth := service.NewLandscapeSynthesizer(model, logger)
	ingest := service.NewIngestService(cat, scrapers, synth, st, mc, logger)

	return &App{
		Books:   service.NewBookService(cat, st, logger),
		Ingest:  ingest,
		Runner:  service.NewIngestRunner(ingest, st, cfg.IngestTimeout, logger),
		Chat:    service.NewChatService(st, model, logger),
		Store:   st,
		Metrics: mc,
	}, nil
}
