// Package catalog looks books up in Open Library (primary) and Google Books
// (secondary) and merges what they know into one metadata record.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/raphaelgruber/bookpack/internal/fetch"
	"github.com/raphaelgruber/bookpack/internal/metrics"
	"github.com/raphaelgruber/bookpack/internal/models"
	"golang.org/x/sync/singleflight"
)

// maxResults caps each catalog search and the merged list.
const maxResults = 8

// minQueryLen is the shortest query that reaches the catalogs.
const minQueryLen = 2

// Default endpoints.
const (
	DefaultOpenLibraryURL = "https://openlibrary.org"
	DefaultCoversURL      = "https://covers.openlibrary.org"
	DefaultGoogleBooksURL = "https://www.googleapis.com/books/v1"
)

// Options configures a Catalog. Zero values select the public endpoints.
type Options struct {
	OpenLibraryURL string
	CoversURL      string
	GoogleBooksURL string
	GoogleAPIKey   string
	Client         *http.Client
	Logger         *slog.Logger
	Metrics        *metrics.Collector
}

// Catalog queries the external book catalogs. Lookups never fail loudly:
// a catalog that errors contributes nothing.
type Catalog struct {
	openLibraryURL string
	coversURL      string
	googleBooksURL string
	googleAPIKey   string
	client         *http.Client
	logger         *slog.Logger
	metrics        *metrics.Collector
	lookups        singleflight.Group
}

// New creates a Catalog.
func New(opts Options) *Catalog {
	c := &Catalog{
		openLibraryURL: strings.TrimRight(firstNonEmpty(opts.OpenLibraryURL, DefaultOpenLibraryURL), "/"),
		coversURL:      strings.TrimRight(firstNonEmpty(opts.CoversURL, DefaultCoversURL), "/"),
		googleBooksURL: strings.TrimRight(firstNonEmpty(opts.GoogleBooksURL, DefaultGoogleBooksURL), "/"),
		googleAPIKey:   opts.GoogleAPIKey,
		client:         opts.Client,
		logger:         opts.Logger,
		metrics:        opts.Metrics,
	}
	if c.client == nil {
		c.client = fetch.NewClient()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Search queries both catalogs concurrently and merges the hits, primary
// first, dropping duplicates by title and author. Queries shorter than two
// characters return nothing without any request.
func (c *Catalog) Search(ctx context.Context, query string) []models.SearchResult {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < minQueryLen {
		return []models.SearchResult{}
	}

	start := time.Now()
	var (
		wg        sync.WaitGroup
		olResults []models.SearchResult
		gbResults []models.SearchResult
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		var err error
		if olResults, err = c.searchOpenLibrary(ctx, query); err != nil {
			c.logger.Warn("open library search failed", "query", query, "error", err)
		}
	}()
	go func() {
		defer wg.Done()
		var err error
		if gbResults, err = c.searchGoogleBooks(ctx, query); err != nil {
			c.logger.Warn("google books search failed", "query", query, "error", err)
		}
	}()
	wg.Wait()

	merged := mergeResults(olResults, gbResults)
	c.metrics.RecordYield(metrics.OpCatalogSearch, time.Since(start), len(merged))
	return merged
}

func mergeResults(lists ...[]models.SearchResult) []models.SearchResult {
	seen := make(map[string]bool)
	out := []models.SearchResult{}
	for _, list := range lists {
		for _, r := range list {
			key := r.DedupeKey()
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, r)
			if len(out) == maxResults {
				return out
			}
		}
	}
	return out
}

// Lookup fetches one book's metadata from the catalog its id belongs to.
// Concurrent lookups of the same id share a single fetch, which outlives any
// one caller's cancellation and is bounded by the per-request timeouts.
// Returns models.ErrNotFound when the catalog has no such book.
func (c *Catalog) Lookup(ctx context.Context, id string) (*models.BookMetadata, error) {
	shared := context.WithoutCancel(ctx)
	ch := c.lookups.DoChan(id, func() (any, error) {
		start := time.Now()
		meta, err := c.lookup(shared, id)
		if err != nil {
			c.metrics.RecordFailure(metrics.OpCatalogLookup, time.Since(start))
			return nil, err
		}
		c.metrics.RecordTiming(metrics.OpCatalogLookup, time.Since(start))
		return meta, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		meta := *res.Val.(*models.BookMetadata)
		return &meta, nil
	}
}

func (c *Catalog) lookup(ctx context.Context, id string) (*models.BookMetadata, error) {
	if models.IsGoogleID(id) {
		meta, err := c.fetchGoogleBooksVolume(ctx, strings.TrimPrefix(id, models.GoogleIDPrefix))
		if err != nil {
			c.logger.Warn("google books lookup failed", "book_id", id, "error", err)
			return nil, lookupError(id, err)
		}
		return meta, nil
	}

	p, err := c.fetchOpenLibrary(ctx, id)
	if err != nil {
		c.logger.Warn("open library lookup failed", "book_id", id, "error", err)
		return nil, lookupError(id, err)
	}
	meta := merge(models.BookMetadata{ID: id, Title: models.UnknownTitle, Author: models.UnknownAuthor}, p, partial{})
	return &meta, nil
}

// lookupError reports a catalog that answered with an error status as
// not found; timeouts and connection failures stay distinct.
func lookupError(id string, err error) error {
	var se *fetch.StatusError
	if errors.As(err, &se) {
		return models.ErrNotFound
	}
	return fmt.Errorf("lookup %s: %w", id, err)
}

// Enrich fills in a search-level record from both catalogs. The primary
// lookup is skipped for Google-sourced ids. Either lookup failing only
// leaves its fields empty; the result is always fully populated.
func (c *Catalog) Enrich(ctx context.Context, in models.BookMetadata) models.BookMetadata {
	var (
		wg        sync.WaitGroup
		primary   partial
		secondary partial
	)

	if !models.IsGoogleID(in.ID) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := c.fetchOpenLibrary(ctx, in.ID)
			if err != nil {
				c.logger.Warn("open library enrichment failed", "book_id", in.ID, "error", err)
				return
			}
			primary = p
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		p, err := c.fetchGoogleBooksByQuery(ctx, in.Title, in.Author)
		if err != nil {
			c.logger.Warn("google books enrichment failed", "book_id", in.ID, "error", err)
			return
		}
		secondary = p
	}()

	wg.Wait()

	out := merge(in, primary, secondary)
	c.logger.Info("metadata enriched",
		"book_id", out.ID,
		"synopsis", out.Synopsis != "",
		"genres", len(out.Genre),
		"pages", out.PageCount,
		"rated", out.GoodreadsRating != nil,
	)
	return out
}
