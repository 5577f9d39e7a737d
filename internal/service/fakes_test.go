package service

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/raphaelgruber/bookpack/internal/models"
	"github.com/raphaelgruber/bookpack/internal/scraper"
)

type fakeEnricher struct {
	year int
}

func (f fakeEnricher) Enrich(_ context.Context, in models.BookMetadata) models.BookMetadata {
	out := in
	if out.Year == 0 {
		out.Year = f.year
	}
	if out.Genre == nil {
		out.Genre = []string{}
	}
	return out
}

// fakeScraper returns fixed chunks, optionally after gate is closed.
type fakeScraper struct {
	name   string
	step   string
	chunks []models.Chunk
	gate   chan struct{}
	calls  atomic.Int32
}

func (f *fakeScraper) Name() string { return f.name }
func (f *fakeScraper) Step() string { return f.step }

func (f *fakeScraper) Fetch(ctx context.Context, _, _ string) []models.Chunk {
	f.calls.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return []models.Chunk{}
		}
	}
	return f.chunks
}

func chunksOf(source string, typ models.ChunkType, contents ...string) []models.Chunk {
	out := make([]models.Chunk, 0, len(contents))
	for i, c := range contents {
		out = append(out, models.Chunk{
			ID:      source + "-" + string(rune('a'+i)),
			Content: c,
			Source:  source,
			Type:    typ,
		})
	}
	return out
}

// registry builds the four sources in their production order.
func registry(goodreads, reddit, guardian, lithub []models.Chunk) []*fakeScraper {
	return []*fakeScraper{
		{name: models.SourceGoodreads, step: models.StepGoodreads, chunks: goodreads},
		{name: models.SourceReddit, step: models.StepReddit, chunks: reddit},
		{name: models.SourceGuardian, step: models.StepCriticReviews, chunks: guardian},
		{name: models.SourceLiteraryHub, step: models.StepCriticReviews, chunks: lithub},
	}
}

func asScrapers(fakes []*fakeScraper) []scraper.Scraper {
	out := make([]scraper.Scraper, 0, len(fakes))
	for _, f := range fakes {
		out = append(out, f)
	}
	return out
}

type fakeGenerator struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string, _ int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

func (f *fakeGenerator) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

type fakeStreamer struct {
	pieces    []string
	err       error
	calls     int
	system    string
	history   []models.ChatMessage
	message   string
	maxTokens int
}

func (f *fakeStreamer) Stream(_ context.Context, system string, history []models.ChatMessage, message string, maxTokens int, onToken func(string) error) error {
	f.calls++
	f.system, f.history, f.message, f.maxTokens = system, history, message, maxTokens
	if f.err != nil {
		return f.err
	}
	for _, p := range f.pieces {
		if err := onToken(p); err != nil {
			return err
		}
	}
	return nil
}

type fakeCatalog struct {
	results []models.SearchResult
	meta    *models.BookMetadata
	err     error
	lookups int
}

func (f *fakeCatalog) Search(_ context.Context, query string) []models.SearchResult {
	if len(strings.TrimSpace(query)) < 2 {
		return []models.SearchResult{}
	}
	return f.results
}

func (f *fakeCatalog) Lookup(_ context.Context, _ string) (*models.BookMetadata, error) {
	f.lookups++
	return f.meta, f.err
}

// recorder collects emitted events.
type recorder struct {
	mu     sync.Mutex
	events []models.IngestionEvent
}

func (r *recorder) emit(e models.IngestionEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) status(step string) []models.EventStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.EventStatus
	for _, e := range r.events {
		if e.Step == step {
			out = append(out, e.Status)
		}
	}
	return out
}
