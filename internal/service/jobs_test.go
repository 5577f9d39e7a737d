package service

import (
	"context"
	"testing"
	"time"

	"github.com/raphaelgruber/bookpack/internal/models"
	"github.com/raphaelgruber/bookpack/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, sub *Subscription) []models.IngestionEvent {
	t.Helper()
	var events []models.IngestionEvent
	timeout := time.After(5 * time.Second)
	for {
		select {
		case e, ok := <-sub.Events:
			if !ok {
				return events
			}
			events = append(events, e)
		case <-timeout:
			t.Fatalf("subscription did not finish; got %d events", len(events))
			return events
		}
	}
}

func next(t *testing.T, sub *Subscription) models.IngestionEvent {
	t.Helper()
	select {
	case e, ok := <-sub.Events:
		require.True(t, ok, "subscription closed early")
		return e
	case <-time.After(5 * time.Second):
		t.Fatal("no event")
		return models.IngestionEvent{}
	}
}

func TestSubscribeStoredPack(t *testing.T) {
	st := store.NewMemory()
	k := models.NewBookKnowledge(partialMeta, chunksOf(models.SourceGoodreads, models.ChunkReaderReview, "Lovely."), EmptyLandscape, nil, []string{models.SourceGoodreads})
	st.Set(partialMeta.ID, k)
	f := newIngestFixture(registry(nil, nil, nil, nil))
	r := NewIngestRunner(f.svc, st, time.Minute, nil)

	events := drain(t, r.Subscribe(models.BookMetadata{ID: partialMeta.ID}))

	require.Len(t, events, 1)
	assert.Equal(t, models.StepReady, events[0].Step)
	assert.Equal(t, models.StatusDone, events[0].Status)
	assert.Equal(t, []string{models.SourceGoodreads}, events[0].Sources)
	assert.Equal(t, "Lovely.", events[0].Quote)
	assert.Zero(t, f.scrapers[0].calls.Load())
	assert.Empty(t, r.Runs())
}

func TestSubscribeMissingMetadata(t *testing.T) {
	f := newIngestFixture(registry(nil, nil, nil, nil))
	r := NewIngestRunner(f.svc, f.store, time.Minute, nil)

	events := drain(t, r.Subscribe(models.BookMetadata{ID: "OL1W"}))

	assert.Equal(t, []models.IngestionEvent{{Step: models.StepMetadataMissing, Status: models.StatusFailed}}, events)
}

func TestSubscribeSameBookSharesRun(t *testing.T) {
	gate := make(chan struct{})
	scrapers := registry(chunksOf(models.SourceGoodreads, models.ChunkReaderReview, "Devastating."), nil, nil, nil)
	scrapers[0].gate = gate
	f := newIngestFixture(scrapers)
	r := NewIngestRunner(f.svc, f.store, time.Minute, nil)

	first := r.Subscribe(partialMeta)
	assert.Equal(t, models.StepFetchDetails, next(t, first).Step)

	second := r.Subscribe(partialMeta)
	close(gate)

	a := drain(t, first)
	b := drain(t, second)
	r.Wait()

	assert.Equal(t, int32(1), scrapers[0].calls.Load())
	require.NotEmpty(t, b)
	assert.Equal(t, models.IngestionEvent{Step: models.StepFetchDetails, Status: models.StatusLoading}, b[0], "history is replayed")
	assert.Equal(t, models.StepReady, a[len(a)-1].Step)
	assert.Equal(t, models.StepReady, b[len(b)-1].Step)
	assert.Len(t, b, len(a)+1)

	runs := r.Runs()
	require.Len(t, runs, 1)
	assert.Equal(t, models.RunCompleted, runs[0].Status)
	assert.Equal(t, 1, runs[0].ChunkCount)
	assert.Equal(t, partialMeta.ID, runs[0].BookID)
	assert.NotNil(t, runs[0].CompletedAt)

	again := drain(t, r.Subscribe(partialMeta))
	require.Len(t, again, 1, "a finished run is served from the store")
	assert.Equal(t, int32(1), scrapers[0].calls.Load())
}

func TestSubscriberLeavingDoesNotStopRun(t *testing.T) {
	gate := make(chan struct{})
	scrapers := registry(nil, chunksOf(models.SourceReddit, models.ChunkCommunityDiscussion, "thread"), nil, nil)
	scrapers[1].gate = gate
	f := newIngestFixture(scrapers)
	r := NewIngestRunner(f.svc, f.store, time.Minute, nil)

	sub := r.Subscribe(partialMeta)
	next(t, sub)
	sub.Close()
	sub.Close()
	close(gate)
	r.Wait()

	k, ok := f.store.Get(partialMeta.ID)
	require.True(t, ok)
	assert.Equal(t, []string{models.SourceReddit}, k.Sources)
}

func TestRunTimeoutStillCompletes(t *testing.T) {
	scrapers := registry(nil, nil, nil, nil)
	scrapers[2].gate = make(chan struct{}) // never opens
	f := newIngestFixture(scrapers)
	r := NewIngestRunner(f.svc, f.store, 50*time.Millisecond, nil)

	events := drain(t, r.Subscribe(partialMeta))

	assert.Equal(t, models.StepReady, events[len(events)-1].Step)
}

type panickingIngester struct{}

func (panickingIngester) Ingest(context.Context, models.BookMetadata, func(models.IngestionEvent)) (*models.BookKnowledge, error) {
	panic("boom")
}

func TestRunPanicReportsFailure(t *testing.T) {
	r := NewIngestRunner(panickingIngester{}, store.NewMemory(), time.Minute, nil)

	events := drain(t, r.Subscribe(partialMeta))
	r.Wait()

	assert.Equal(t, []models.IngestionEvent{{Step: models.StepFailed, Status: models.StatusFailed}}, events)
	runs := r.Runs()
	require.Len(t, runs, 1)
	assert.Equal(t, models.RunFailed, runs[0].Status)
	assert.Contains(t, runs[0].Error, "boom")
}

func TestRunWaitsForPack(t *testing.T) {
	f := newIngestFixture(registry(chunksOf(models.SourceGoodreads, models.ChunkReaderReview, "a"), nil, nil, nil))
	r := NewIngestRunner(f.svc, f.store, time.Minute, nil)

	k, events, err := r.Run(context.Background(), partialMeta)
	require.NoError(t, err)

	assert.Equal(t, 1, k.ChunkCount)
	assert.Equal(t, models.StepReady, events[len(events)-1].Step)

	_, _, err = r.Run(context.Background(), models.BookMetadata{ID: "OL2W"})
	assert.ErrorIs(t, err, models.ErrMetadataMissing)
}

func TestRunHonoursContext(t *testing.T) {
	gate := make(chan struct{})
	defer close(gate)
	scrapers := registry(nil, nil, nil, nil)
	scrapers[0].gate = gate
	f := newIngestFixture(scrapers)
	r := NewIngestRunner(f.svc, f.store, time.Minute, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, _, err := r.Run(ctx, partialMeta)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
