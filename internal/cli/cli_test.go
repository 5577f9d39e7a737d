package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/raphaelgruber/bookpack/internal/metrics"
	"github.com/raphaelgruber/bookpack/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var novel = models.BookMetadata{ID: "OL1W", Title: "Never Let Me Go", Author: "Kazuo Ishiguro"}

func scriptedFollow(events ...models.IngestionEvent) followFunc {
	return func(_ context.Context, _ models.BookMetadata, onEvent func(models.IngestionEvent) error) error {
		for _, e := range events {
			if err := onEvent(e); err != nil {
				return err
			}
		}
		return nil
	}
}

func readyEvent() models.IngestionEvent {
	return models.IngestionEvent{
		Step:    models.StepReady,
		Status:  models.StatusDone,
		Sources: []string{models.SourceGoodreads, models.SourceReddit},
		Landscape: &models.InterpretiveLandscape{
			CriticConsensus: "Critics call it a quiet masterpiece.",
			ReaderSentiment: "Readers are heartbroken.",
		},
	}
}

func TestPrintIngest(t *testing.T) {
	var out bytes.Buffer
	follow := scriptedFollow(
		models.IngestionEvent{Step: models.StepFetchDetails, Status: models.StatusLoading},
		models.IngestionEvent{Step: models.StepGoodreads, Status: models.StatusDone, Quote: "It broke me."},
		models.IngestionEvent{Step: models.StepReddit, Status: models.StatusFailed},
		readyEvent(),
	)

	require.NoError(t, printIngest(context.Background(), &out, novel, follow))

	got := out.String()
	assert.Contains(t, got, "Ingesting Never Let Me Go by Kazuo Ishiguro\n")
	assert.Contains(t, got, "[loading] Fetching book details\n")
	assert.Contains(t, got, "[done]    Reading Goodreads reviews\n")
	assert.Contains(t, got, `"It broke me."`)
	assert.Contains(t, got, "[failed]  Scanning Reddit discussions\n")
	assert.Contains(t, got, "Sources: Goodreads, Reddit\n")
	assert.Contains(t, got, "Critic consensus\n  Critics call it a quiet masterpiece.\n")
	assert.NotContains(t, got, "The debate")
}

func TestPrintIngestFailures(t *testing.T) {
	tests := []struct {
		name    string
		follow  followFunc
		wantErr error
		msg     string
	}{
		{
			name:    "missing metadata",
			follow:  scriptedFollow(models.IngestionEvent{Step: models.StepMetadataMissing, Status: models.StatusFailed}),
			wantErr: errIngestFailed,
			msg:     "Error: metadata missing",
		},
		{
			name:   "stream cut short",
			follow: scriptedFollow(models.IngestionEvent{Step: models.StepFetchDetails, Status: models.StatusLoading}),
			msg:    "stream ended before the book was ready",
		},
		{
			name: "transport error",
			follow: func(context.Context, models.BookMetadata, func(models.IngestionEvent) error) error {
				return errors.New("connection refused")
			},
			msg: "connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := printIngest(context.Background(), &bytes.Buffer{}, novel, tt.follow)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestProgressModelTracksSteps(t *testing.T) {
	m := newProgressModel(novel, nil, nil)

	apply := func(e models.IngestionEvent) {
		next, _ := m.Update(eventMsg(e))
		m = next.(progressModel)
	}

	apply(models.IngestionEvent{Step: models.StepFetchDetails, Status: models.StatusLoading})
	assert.Zero(t, m.settled())

	apply(models.IngestionEvent{Step: models.StepFetchDetails, Status: models.StatusDone})
	apply(models.IngestionEvent{Step: models.StepGoodreads, Status: models.StatusDone, Quote: "It broke me."})
	apply(models.IngestionEvent{Step: models.StepReddit, Status: models.StatusFailed})
	assert.InDelta(t, 0.6, m.settled(), 0.001)
	assert.Equal(t, "It broke me.", m.quote)
	assert.False(t, m.done)
	assert.Contains(t, m.renderContent(), "Scanning Reddit discussions")

	apply(readyEvent())
	assert.True(t, m.done)
	assert.NoError(t, m.err)
	require.NotNil(t, m.final)
	assert.Contains(t, m.finalView(), "Sources: Goodreads, Reddit")
}

func TestProgressModelFailure(t *testing.T) {
	m := newProgressModel(novel, nil, nil)

	next, _ := m.Update(eventMsg{Step: models.StepFailed, Status: models.StatusFailed})
	m = next.(progressModel)

	assert.True(t, m.done)
	assert.ErrorIs(t, m.err, errIngestFailed)
}

func TestProgressModelStreamEnd(t *testing.T) {
	m := newProgressModel(novel, nil, nil)

	next, _ := m.Update(streamEndMsg{})
	m = next.(progressModel)
	assert.True(t, m.done)
	assert.ErrorContains(t, m.err, "stream ended")

	m = newProgressModel(novel, nil, nil)
	next, _ = m.Update(streamEndMsg{err: errors.New("reset by peer")})
	m = next.(progressModel)
	assert.EqualError(t, m.err, "reset by peer")
}

func TestWaitForEvent(t *testing.T) {
	events := make(chan models.IngestionEvent, 1)
	end := make(chan error, 1)
	m := newProgressModel(novel, events, end)

	events <- models.IngestionEvent{Step: models.StepReddit, Status: models.StatusLoading}
	assert.Equal(t, eventMsg{Step: models.StepReddit, Status: models.StatusLoading}, m.waitForEvent()())

	close(events)
	end <- nil
	assert.Equal(t, streamEndMsg{}, m.waitForEvent()())
}

func TestPrintServerStats(t *testing.T) {
	in, out := int64(1200), int64(300)
	snap := &metrics.Snapshot{
		UptimeSeconds: 42,
		Operations: map[string]*metrics.OperationSnapshot{
			"scrape:Reddit": {Count: 2, Failures: 1, TotalTimeMs: 900, AvgTimeMs: 450, MinTimeMs: 100, MaxTimeMs: 800, TotalItems: 6},
			"llm_generate":  {Count: 1, TotalTimeMs: 2000, AvgTimeMs: 2000, MinTimeMs: 2000, MaxTimeMs: 2000, TotalInputTokens: &in, TotalOutputTokens: &out},
		},
	}

	var buf bytes.Buffer
	printServerStats(&buf, snap)
	got := buf.String()

	assert.Contains(t, got, "Uptime: 42.0 seconds")
	assert.Contains(t, got, "  Calls: 2, Failures: 1, Total: 900ms\n")
	assert.Contains(t, got, "  Items: 6 total, 3.0 per call\n")
	assert.Contains(t, got, "  Tokens: 1200 in, 300 out\n")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("llm_generate")), bytes.Index(buf.Bytes(), []byte("scrape:Reddit")))
}

func TestPrintServerStatsEmpty(t *testing.T) {
	var buf bytes.Buffer
	printServerStats(&buf, &metrics.Snapshot{})
	assert.Contains(t, buf.String(), "No operations recorded yet.")
}
