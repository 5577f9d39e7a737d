package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"shorter", "hello", 10, "hello"},
		{"exact", "hello", 5, "hello"},
		{"cut", "hello world", 5, "hello"},
		{"multibyte", "café résumé", 4, "café"},
		{"zero", "hello", 0, ""},
		{"empty", "", 3, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateRunes(tt.in, tt.n)
			if got != tt.want {
				t.Errorf("TruncateRunes(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
			}
		})
	}
}

func TestUniqueSources(t *testing.T) {
	chunks := []Chunk{
		{Source: SourceReddit},
		{Source: SourceGoodreads},
		{Source: SourceReddit},
		{Source: SourceGuardian},
	}
	assert.Equal(t, []string{SourceReddit, SourceGoodreads, SourceGuardian}, UniqueSources(chunks))
	assert.Equal(t, []string{}, UniqueSources(nil))
}

func TestAmbientQuote(t *testing.T) {
	long := strings.Repeat("x", 250)

	t.Run("prefers reader review", func(t *testing.T) {
		chunks := []Chunk{
			{Type: ChunkCommunityDiscussion, Content: "forum take"},
			{Type: ChunkReaderReview, Content: "  " + long},
		}
		got := AmbientQuote(chunks)
		assert.Len(t, got, 198)
	})

	t.Run("falls back to discussion", func(t *testing.T) {
		chunks := []Chunk{
			{Type: ChunkCriticReview, Content: "critic"},
			{Type: ChunkCommunityDiscussion, Content: "forum take"},
		}
		assert.Equal(t, "forum take", AmbientQuote(chunks))
	})

	t.Run("critic only", func(t *testing.T) {
		assert.Empty(t, AmbientQuote([]Chunk{{Type: ChunkCriticReview, Content: "critic"}}))
	})
}

func TestNewBookKnowledgeCountsChunks(t *testing.T) {
	k := NewBookKnowledge(BookMetadata{ID: "OL1W"}, []Chunk{{ID: "a"}, {ID: "b"}}, InterpretiveLandscape{}, nil, nil)
	assert.Equal(t, 2, k.ChunkCount)
	assert.Equal(t, []string{}, k.Sources)
	assert.Equal(t, []string{}, k.QuestionPrompts)

	empty := NewBookKnowledge(BookMetadata{ID: "OL2W"}, nil, InterpretiveLandscape{}, nil, nil)
	assert.Equal(t, 0, empty.ChunkCount)
	assert.NotNil(t, empty.Chunks)
}

func TestEventTerminal(t *testing.T) {
	assert.True(t, IngestionEvent{Step: StepReady, Status: StatusDone}.Terminal())
	assert.True(t, IngestionEvent{Step: StepMetadataMissing, Status: StatusFailed}.Terminal())
	assert.True(t, IngestionEvent{Step: StepFailed, Status: StatusFailed}.Terminal())
	assert.False(t, IngestionEvent{Step: StepGoodreads, Status: StatusFailed}.Terminal())
	assert.False(t, IngestionEvent{Step: StepReady, Status: StatusLoading}.Terminal())
}

func TestIngestionEventJSON(t *testing.T) {
	empty := NewBookKnowledge(BookMetadata{ID: "OL1W"}, nil, InterpretiveLandscape{}, nil, nil)
	tests := []struct {
		name    string
		event   IngestionEvent
		want    string
		missing string
	}{
		{"ready without sources", ReadyEvent(empty, ""), `"sources":[]`, ""},
		{"ready with nil sources", IngestionEvent{Step: StepReady, Status: StatusDone}, `"sources":[]`, ""},
		{"ready with sources", IngestionEvent{Step: StepReady, Status: StatusDone, Sources: []string{"Reddit"}}, `"sources":["Reddit"]`, ""},
		{"loading omits sources", IngestionEvent{Step: StepGoodreads, Status: StatusLoading}, `"status":"loading"`, "sources"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.event)
			require.NoError(t, err)
			assert.Contains(t, string(data), tt.want)
			if tt.missing != "" {
				assert.NotContains(t, string(data), tt.missing)
			}

			var back IngestionEvent
			require.NoError(t, json.Unmarshal(data, &back))
			assert.Equal(t, tt.event.Step, back.Step)
		})
	}
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(fmt.Errorf("lookup: %w", ErrNotFound)))
	assert.True(t, IsNotFound(ErrNotIngested))
	assert.False(t, IsNotFound(errors.New("boom")))
	assert.False(t, IsNotFound(ErrInvalidInput))
}

func TestIsGoogleID(t *testing.T) {
	assert.True(t, IsGoogleID("gb_abc123"))
	assert.False(t, IsGoogleID("OL45804W"))
}
