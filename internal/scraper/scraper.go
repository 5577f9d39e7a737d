// Package scraper collects reader reviews, critic pieces and community
// discussion about a book from external sites.
package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/raphaelgruber/bookpack/internal/fetch"
	"github.com/raphaelgruber/bookpack/internal/metrics"
	"github.com/raphaelgruber/bookpack/internal/models"
	"github.com/raphaelgruber/bookpack/internal/parser"
)

// Scraper fetches discourse about one book from a single source.
// Fetch never fails: every error ends in an empty result and a log line.
type Scraper interface {
	// Name is the source display name stamped on every chunk.
	Name() string
	// Step is the ingestion step this source reports under.
	Step() string
	Fetch(ctx context.Context, title, author string) []models.Chunk
}

// Options holds what every scraper shares.
type Options struct {
	// BaseURL overrides the site root. Empty selects the public site.
	BaseURL string
	Client  *http.Client
	Logger  *slog.Logger
	Metrics *metrics.Collector
	Chunks  parser.ChunkConfig
}

// base carries the shared plumbing and the never-fail boundary.
type base struct {
	name    string
	step    string
	baseURL *url.URL
	client  *http.Client
	logger  *slog.Logger
	metrics *metrics.Collector
	chunks  parser.ChunkConfig
}

func newBase(name, step, defaultURL string, opts Options) base {
	raw := strings.TrimRight(opts.BaseURL, "/")
	if raw == "" {
		raw = defaultURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		u, _ = url.Parse(defaultURL)
	}

	b := base{
		name:    name,
		step:    step,
		baseURL: u,
		client:  opts.Client,
		logger:  opts.Logger,
		metrics: opts.Metrics,
		chunks:  opts.Chunks,
	}
	if b.client == nil {
		b.client = fetch.NewClient()
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	if b.chunks.MaxSize <= 0 {
		b.chunks = parser.DefaultChunkConfig()
	}
	b.logger = b.logger.With("source", name)
	return b
}

func (b *base) Name() string { return b.name }
func (b *base) Step() string { return b.step }

// run invokes scrape and turns any error or panic into an empty result.
func (b *base) run(ctx context.Context, title, author string, scrape func(context.Context, string, string) ([]models.Chunk, error)) (chunks []models.Chunk) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("scraper panicked", "title", title, "panic", fmt.Sprint(r))
			chunks = []models.Chunk{}
		}
		b.metrics.RecordYield(metrics.ScrapeOp(b.name), time.Since(start), len(chunks))
	}()

	chunks, err := scrape(ctx, title, author)
	if err != nil {
		b.logger.Warn("scrape failed", "title", title, "author", author, "error", err)
		return []models.Chunk{}
	}
	if chunks == nil {
		chunks = []models.Chunk{}
	}
	b.logger.Info("scrape complete", "title", title, "chunks", len(chunks), "duration_ms", time.Since(start).Milliseconds())
	return chunks
}

// resolve makes href absolute against the site root.
func (b *base) resolve(href string) (*url.URL, error) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return nil, err
	}
	return b.baseURL.ResolveReference(ref), nil
}

func (b *base) endpoint(path string) string {
	return b.baseURL.String() + path
}

func (b *base) chunk(text, sourceURL string, typ models.ChunkType, rating int) []models.Chunk {
	return parser.ChunkText(text, parser.Provenance{
		Source:    b.name,
		SourceURL: sourceURL,
		Type:      typ,
		Rating:    rating,
	}, b.chunks)
}

// Config selects credentials and site roots for the default registry.
type Config struct {
	GuardianAPIKey string

	GoodreadsURL   string
	RedditURL      string
	GuardianURL    string
	LiteraryHubURL string
}

// All returns the scrapers in registry order. The order fixes how sources
// are listed in a knowledge pack.
func All(cfg Config, opts Options) []Scraper {
	with := func(u string) Options {
		o := opts
		o.BaseURL = u
		return o
	}
	return []Scraper{
		NewGoodreads(with(cfg.GoodreadsURL)),
		NewReddit(with(cfg.RedditURL), RedditIntervals{}),
		NewGuardian(with(cfg.GuardianURL), cfg.GuardianAPIKey),
		NewLiteraryHub(with(cfg.LiteraryHubURL)),
	}
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
