// Package service provides business logic for bookpack operations.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/raphaelgruber/bookpack/internal/models"
	"github.com/raphaelgruber/bookpack/internal/store"
)

const (
	// maxRuns bounds the run history kept for listing.
	maxRuns = 100
	// subscriberBuffer holds a full run's events, so delivery never blocks.
	subscriberBuffer = 64
)

// Ingester runs the ingestion pipeline for one book.
type Ingester interface {
	Ingest(ctx context.Context, partial models.BookMetadata, emit func(models.IngestionEvent)) (*models.BookKnowledge, error)
}

// IngestRunner runs at most one ingestion per book id at a time and lets
// any number of consumers follow it. Runs are detached from the consumers:
// a consumer going away only unsubscribes.
type IngestRunner struct {
	ingest  Ingester
	store   store.KnowledgeStore
	timeout time.Duration
	logger  *slog.Logger

	mu     sync.Mutex
	active map[string]*run // book id -> in-flight run
	runs   []*run          // oldest first
	wg     sync.WaitGroup
}

// NewIngestRunner creates a runner. timeout bounds each run; 0 means none.
func NewIngestRunner(ingest Ingester, st store.KnowledgeStore, timeout time.Duration, logger *slog.Logger) *IngestRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestRunner{
		ingest:  ingest,
		store:   st,
		timeout: timeout,
		logger:  logger,
		active:  make(map[string]*run),
	}
}

// Subscribe follows ingestion of partial.ID. A stored pack yields a single
// Ready event; invalid metadata a single failed event. Otherwise the
// subscription attaches to the book's in-flight run, starting one if none
// exists, and replays the events emitted so far before live ones.
func (r *IngestRunner) Subscribe(partial models.BookMetadata) *Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ru, ok := r.active[partial.ID]; ok {
		r.logger.Debug("attaching to ingestion run", "run_id", ru.id, "book_id", partial.ID)
		return ru.subscribe()
	}

	if k, ok := r.store.Get(partial.ID); ok {
		return finished(models.ReadyEvent(k, models.AmbientQuote(k.Chunks)))
	}

	if err := ValidateMetadata(partial); err != nil {
		r.logger.Warn("ingestion rejected", "book_id", partial.ID, "error", err)
		return finished(models.IngestionEvent{Step: models.StepMetadataMissing, Status: models.StatusFailed})
	}

	ru := newRun(partial)
	r.active[partial.ID] = ru
	r.runs = append(r.runs, ru)
	if len(r.runs) > maxRuns {
		r.runs = slices.Delete(r.runs, 0, len(r.runs)-maxRuns)
	}
	sub := ru.subscribe()

	r.wg.Add(1)
	go r.execute(ru, partial)

	r.logger.Info("ingestion run started", "run_id", ru.id, "book_id", partial.ID, "title", partial.Title)
	return sub
}

// Run ingests partial and waits for the run to finish or ctx to end.
// It returns the stored pack and every event the run emitted.
func (r *IngestRunner) Run(ctx context.Context, partial models.BookMetadata) (*models.BookKnowledge, []models.IngestionEvent, error) {
	sub := r.Subscribe(partial)
	defer sub.Close()

	var events []models.IngestionEvent
	for {
		select {
		case <-ctx.Done():
			return nil, events, ctx.Err()
		case e, ok := <-sub.Events:
			if !ok {
				return r.result(partial.ID, events)
			}
			events = append(events, e)
		}
	}
}

func (r *IngestRunner) result(bookID string, events []models.IngestionEvent) (*models.BookKnowledge, []models.IngestionEvent, error) {
	if len(events) > 0 {
		switch last := events[len(events)-1]; last.Step {
		case models.StepMetadataMissing:
			return nil, events, models.ErrMetadataMissing
		case models.StepFailed:
			return nil, events, errors.New("ingestion failed")
		}
	}
	k, ok := r.store.Get(bookID)
	if !ok {
		return nil, events, models.ErrNotIngested
	}
	return k, events, nil
}

// Runs returns the recorded runs, most recent first.
func (r *IngestRunner) Runs() []models.IngestRun {
	r.mu.Lock()
	runs := slices.Clone(r.runs)
	r.mu.Unlock()

	out := make([]models.IngestRun, 0, len(runs))
	for _, ru := range runs {
		out = append(out, ru.snapshot())
	}
	slices.SortFunc(out, func(a, b models.IngestRun) int {
		return b.StartedAt.Compare(a.StartedAt)
	})
	return out
}

// Wait blocks until every started run has finished.
func (r *IngestRunner) Wait() {
	r.wg.Wait()
}

func (r *IngestRunner) execute(ru *run, partial models.BookMetadata) {
	defer r.wg.Done()

	ctx := context.Background()
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("ingestion run panicked", "run_id", ru.id, "book_id", partial.ID, "panic", p)
			ru.fail(fmt.Errorf("internal panic: %v", p))
		}
		r.mu.Lock()
		if r.active[partial.ID] == ru {
			delete(r.active, partial.ID)
		}
		r.mu.Unlock()
	}()

	k, err := r.ingest.Ingest(ctx, partial, ru.publish)
	if err != nil {
		r.logger.Error("ingestion run failed", "run_id", ru.id, "book_id", partial.ID, "error", err)
		ru.fail(err)
		return
	}
	ru.complete(k)
	r.logger.Info("ingestion run completed", "run_id", ru.id, "book_id", partial.ID, "chunks", k.ChunkCount)
}

// run is one pipeline execution and its event log.
type run struct {
	id string

	mu      sync.Mutex
	info    models.IngestRun
	history []models.IngestionEvent
	subs    map[*Subscription]struct{}
	done    bool
}

func newRun(partial models.BookMetadata) *run {
	id := uuid.New().String()[:8]
	return &run{
		id: id,
		info: models.IngestRun{
			ID:        id,
			BookID:    partial.ID,
			Title:     partial.Title,
			Status:    models.RunRunning,
			StartedAt: time.Now(),
		},
		subs: make(map[*Subscription]struct{}),
	}
}

// publish records e and forwards it to every subscriber. A terminal event
// ends the run's stream.
func (ru *run) publish(e models.IngestionEvent) {
	ru.mu.Lock()
	defer ru.mu.Unlock()
	if ru.done {
		return
	}

	ru.history = append(ru.history, e)
	ru.info.Step = e.Step
	if e.Step == models.StepReady {
		ru.info.Sources = e.Sources
	}
	for sub := range ru.subs {
		select {
		case sub.events <- e:
		default:
			// Buffer exhausted; drop the subscriber rather than stall the run.
			delete(ru.subs, sub)
			sub.closeChannel()
		}
	}
	if e.Terminal() {
		ru.done = true
		for sub := range ru.subs {
			sub.closeChannel()
		}
		clear(ru.subs)
	}
}

func (ru *run) complete(k *models.BookKnowledge) {
	ru.mu.Lock()
	now := time.Now()
	ru.info.Status = models.RunCompleted
	ru.info.ChunkCount = k.ChunkCount
	ru.info.Sources = k.Sources
	ru.info.CompletedAt = &now
	ru.mu.Unlock()
}

func (ru *run) fail(err error) {
	step := models.StepFailed
	if errors.Is(err, models.ErrMetadataMissing) {
		step = models.StepMetadataMissing
	}
	ru.publish(models.IngestionEvent{Step: step, Status: models.StatusFailed})

	ru.mu.Lock()
	now := time.Now()
	ru.info.Status = models.RunFailed
	ru.info.Error = err.Error()
	ru.info.CompletedAt = &now
	ru.mu.Unlock()
}

func (ru *run) subscribe() *Subscription {
	ru.mu.Lock()
	defer ru.mu.Unlock()

	sub := newSubscription(len(ru.history) + subscriberBuffer)
	for _, e := range ru.history {
		sub.events <- e
	}
	if ru.done {
		sub.closeChannel()
		return sub
	}
	sub.run = ru
	ru.subs[sub] = struct{}{}
	return sub
}

func (ru *run) unsubscribe(sub *Subscription) {
	ru.mu.Lock()
	defer ru.mu.Unlock()
	if _, ok := ru.subs[sub]; ok {
		delete(ru.subs, sub)
		sub.closeChannel()
	}
}

func (ru *run) snapshot() models.IngestRun {
	ru.mu.Lock()
	defer ru.mu.Unlock()
	info := ru.info
	info.Sources = slices.Clone(ru.info.Sources)
	return info
}

// Subscription delivers one run's events in order. Events is closed after
// the terminal event or when the subscription is closed.
type Subscription struct {
	Events <-chan models.IngestionEvent

	events    chan models.IngestionEvent
	run       *run
	closeOnce sync.Once
}

func newSubscription(buffer int) *Subscription {
	ch := make(chan models.IngestionEvent, buffer)
	return &Subscription{Events: ch, events: ch}
}

// finished returns a subscription that yields events and ends.
func finished(events ...models.IngestionEvent) *Subscription {
	sub := newSubscription(len(events))
	for _, e := range events {
		sub.events <- e
	}
	sub.closeChannel()
	return sub
}

// Close stops delivery. The run itself continues. Safe to call more than once.
func (s *Subscription) Close() {
	if s.run != nil {
		s.run.unsubscribe(s)
		return
	}
	s.closeChannel()
}

// closeChannel must be called with the owning run's lock held, if any.
func (s *Subscription) closeChannel() {
	s.closeOnce.Do(func() { close(s.events) })
}
