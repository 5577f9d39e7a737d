package service

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/raphaelgruber/bookpack/internal/metrics"
	"github.com/raphaelgruber/bookpack/internal/models"
	"github.com/raphaelgruber/bookpack/internal/scraper"
	"github.com/raphaelgruber/bookpack/internal/store"
	"golang.org/x/sync/errgroup"
)

// MetadataEnricher completes a search-level record from the catalogs.
type MetadataEnricher interface {
	Enrich(ctx context.Context, in models.BookMetadata) models.BookMetadata
}

// Synthesizer summarizes the discourse in a set of chunks.
type Synthesizer interface {
	Synthesize(ctx context.Context, meta models.BookMetadata, chunks []models.Chunk) (models.InterpretiveLandscape, []string)
}

// IngestService builds knowledge packs: metadata, then every scraper in
// parallel, then the landscape, then the store write.
type IngestService struct {
	enricher MetadataEnricher
	scrapers []scraper.Scraper
	synth    Synthesizer
	store    store.KnowledgeStore
	metrics  *metrics.Collector
	logger   *slog.Logger
}

// NewIngestService creates a new ingest service. Scrapers are kept in the
// given order, which is also the order of a pack's sources.
func NewIngestService(enricher MetadataEnricher, scrapers []scraper.Scraper, synth Synthesizer, st store.KnowledgeStore, collector *metrics.Collector, logger *slog.Logger) *IngestService {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestService{
		enricher: enricher,
		scrapers: scrapers,
		synth:    synth,
		store:    st,
		metrics:  collector,
		logger:   logger,
	}
}

// ValidateMetadata checks the fields ingestion cannot start without.
func ValidateMetadata(meta models.BookMetadata) error {
	if strings.TrimSpace(meta.ID) == "" || strings.TrimSpace(meta.Title) == "" {
		return models.ErrMetadataMissing
	}
	return nil
}

// Ingest runs the pipeline for partial and stores the resulting pack.
// Progress is reported through emit, which is never called concurrently.
// Source failures are not errors; only invalid metadata is.
func (s *IngestService) Ingest(ctx context.Context, partial models.BookMetadata, emit func(models.IngestionEvent)) (*models.BookKnowledge, error) {
	if err := ValidateMetadata(partial); err != nil {
		return nil, err
	}
	if emit == nil {
		emit = func(models.IngestionEvent) {}
	}
	var emitMu sync.Mutex
	report := func(e models.IngestionEvent) {
		emitMu.Lock()
		defer emitMu.Unlock()
		emit(e)
	}

	start := time.Now()

	report(models.IngestionEvent{Step: models.StepFetchDetails, Status: models.StatusLoading})
	meta := s.enricher.Enrich(ctx, partial)
	report(models.IngestionEvent{Step: models.StepFetchDetails, Status: models.StatusDone})

	results := s.scrape(ctx, meta, report)

	var chunks []models.Chunk
	sources := []string{}
	for i, sc := range s.scrapers {
		if len(results[i]) == 0 {
			continue
		}
		chunks = append(chunks, results[i]...)
		sources = append(sources, sc.Name())
	}
	quote := models.AmbientQuote(chunks)

	report(models.IngestionEvent{Step: models.StepBuildKnowledge, Status: models.StatusLoading})
	landscape, prompts := s.synth.Synthesize(ctx, meta, chunks)
	report(models.IngestionEvent{Step: models.StepBuildKnowledge, Status: models.StatusDone})

	k := models.NewBookKnowledge(meta, chunks, landscape, prompts, sources)
	s.store.Set(meta.ID, k)
	s.metrics.RecordYield(metrics.OpIngest, time.Since(start), k.ChunkCount)

	s.logger.Info("book ingested",
		"book_id", meta.ID,
		"title", meta.Title,
		"chunks", k.ChunkCount,
		"sources", len(sources),
		"prompts", len(prompts),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	report(models.ReadyEvent(k, quote))
	return k, nil
}

// scrape runs every scraper concurrently and returns their chunks by
// scraper index. A step is reported loading up front and settles once all
// of its scrapers have returned: done if any produced chunks.
func (s *IngestService) scrape(ctx context.Context, meta models.BookMetadata, report func(models.IngestionEvent)) [][]models.Chunk {
	type stepState struct {
		pending int
		chunks  []models.Chunk
	}
	var (
		mu    sync.Mutex
		steps = make(map[string]*stepState)
		order []string
	)
	for _, sc := range s.scrapers {
		st, ok := steps[sc.Step()]
		if !ok {
			st = &stepState{}
			steps[sc.Step()] = st
			order = append(order, sc.Step())
		}
		st.pending++
	}
	for _, step := range order {
		report(models.IngestionEvent{Step: step, Status: models.StatusLoading})
	}

	results := make([][]models.Chunk, len(s.scrapers))
	var g errgroup.Group
	for i, sc := range s.scrapers {
		g.Go(func() error {
			chunks := sc.Fetch(ctx, meta.Title, meta.Author)
			results[i] = chunks

			mu.Lock()
			st := steps[sc.Step()]
			st.pending--
			st.chunks = append(st.chunks, chunks...)
			settled := st.pending == 0
			stepChunks := st.chunks
			mu.Unlock()

			if settled {
				report(stepEvent(sc.Step(), stepChunks))
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// stepEvent reports a settled scraper step. Reader reviews lend the event
// an ambient quote.
func stepEvent(step string, chunks []models.Chunk) models.IngestionEvent {
	if len(chunks) == 0 {
		return models.IngestionEvent{Step: step, Status: models.StatusFailed}
	}
	e := models.IngestionEvent{Step: step, Status: models.StatusDone}
	for _, c := range chunks {
		if c.Type == models.ChunkReaderReview {
			e.Quote = strings.TrimSpace(models.TruncateRunes(c.Content, models.QuoteLen))
			break
		}
	}
	return e
}
