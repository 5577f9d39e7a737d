package app

import (
	"context"
	"testing"
	"time"

	"github.com/raphaelgruber/bookpack/internal/config"
	"github.com/raphaelgruber/bookpack/internal/llm"
	"github.com/raphaelgruber/bookpack/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithoutLLMKey(t *testing.T) {
	cfg := config.Config{
		LLMProvider:   config.ProviderAnthropic,
		LLMModel:      "claude-sonnet-4-6",
		IngestTimeout: time.Minute,
	}

	a, err := New(cfg, nil)
	require.NoError(t, err)
	require.NotNil(t, a.Books)
	require.NotNil(t, a.Runner)

	assert.Empty(t, a.Books.Search(context.Background(), "a"))

	meta := models.BookMetadata{ID: "OL1W", Title: "Never Let Me Go", Author: "Kazuo Ishiguro"}
	chunks := []models.Chunk{{ID: "c1", Content: "Kathy remembers Hailsham.", Source: models.SourceGoodreads, Type: models.ChunkReaderReview}}
	a.Store.Set(meta.ID, models.NewBookKnowledge(meta, chunks, models.InterpretiveLandscape{}, []string{}, []string{models.SourceGoodreads}))

	_, _, err = a.Chat.Ask(context.Background(), models.ChatRequest{BookID: meta.ID, Message: "Who is Kathy?"})
	require.ErrorIs(t, err, llm.ErrMissingCredential)
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New(config.Config{LLMProvider: "parrot"}, nil)
	require.Error(t, err)
}
