package service

import (
	"context"
	"log/slog"

	"github.com/raphaelgruber/bookpack/internal/models"
	"github.com/raphaelgruber/bookpack/internal/store"
)

// Catalog finds books and their metadata.
type Catalog interface {
	Search(ctx context.Context, query string) []models.SearchResult
	Lookup(ctx context.Context, id string) (*models.BookMetadata, error)
}

// BookService handles catalog search and book detail lookups.
type BookService struct {
	catalog Catalog
	store   store.KnowledgeStore
	logger  *slog.Logger
}

// NewBookService creates a new book service.
func NewBookService(catalog Catalog, st store.KnowledgeStore, logger *slog.Logger) *BookService {
	if logger == nil {
		logger = slog.Default()
	}
	return &BookService{catalog: catalog, store: st, logger: logger}
}

// Search returns at most eight merged catalog hits. Never nil.
func (s *BookService) Search(ctx context.Context, query string) []models.SearchResult {
	results := s.catalog.Search(ctx, query)
	if results == nil {
		results = []models.SearchResult{}
	}
	s.logger.Debug("search", "query", query, "results", len(results))
	return results
}

// Details returns a book's metadata without triggering ingestion: the
// stored pack's when ingested, otherwise a fresh catalog lookup.
// Returns models.ErrNotFound when no catalog knows the id.
func (s *BookService) Details(ctx context.Context, id string) (*models.BookDetails, error) {
	if k, ok := s.store.Get(id); ok {
		return &models.BookDetails{Status: models.DetailsCached, Metadata: k.Metadata}, nil
	}

	meta, err := s.catalog.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.BookDetails{Status: models.DetailsFresh, Metadata: *meta}, nil
}
