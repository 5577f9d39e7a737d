package retrieval

import (
	"fmt"
	"math"
	"testing"

	"github.com/raphaelgruber/bookpack/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunk(id string, typ models.ChunkType, content string) models.Chunk {
	return models.Chunk{ID: id, Type: typ, Content: content, Source: string(typ)}
}

func ids(chunks []models.Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.ID
	}
	return out
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"stop words dropped", "What is the ending about?", []string{"ending", "about"}},
		{"punctuation stripped", "Kathy's narration—unreliable!", []string{"kathy", "narration", "unreliable"}},
		{"short tokens dropped", "an ox ran by", []string{"ran"}},
		{"only stop words", "why did they do that", []string{}},
		{"empty", "", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.in)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScore(t *testing.T) {
	t.Run("exact and partial matches", func(t *testing.T) {
		c := chunk("a", models.ChunkReaderReview, "memory memories rememberance")
		got := Score([]string{"memor"}, c)
		// "memor" is a strict substring of memory and memories only
		want := (2 * PartialMatchWeight) / math.Log(3+2)
		assert.InDelta(t, want, got, 1e-9)
	})

	t.Run("exact match counts once per query token", func(t *testing.T) {
		c := chunk("a", models.ChunkReaderReview, "ending ending ending")
		got := Score([]string{"ending"}, c)
		assert.InDelta(t, 1/math.Log(3+2), got, 1e-9)
	})

	t.Run("critic weight", func(t *testing.T) {
		reader := Score([]string{"ending"}, chunk("a", models.ChunkReaderReview, "the ending"))
		critic := Score([]string{"ending"}, chunk("b", models.ChunkCriticReview, "the ending"))
		interview := Score([]string{"ending"}, chunk("c", models.ChunkAuthorInterview, "the ending"))
		assert.InDelta(t, reader*1.3, critic, 1e-9)
		assert.InDelta(t, reader*1.4, interview, 1e-9)
	})

	t.Run("no match", func(t *testing.T) {
		assert.Zero(t, Score([]string{"ending"}, chunk("a", models.ChunkCriticReview, "nothing relevant here")))
	})
}

func TestRetrieve_Empty(t *testing.T) {
	got := Retrieve("anything", nil, 8)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRetrieve_Bound(t *testing.T) {
	var chunks []models.Chunk
	for i := 0; i < 30; i++ {
		chunks = append(chunks, chunk(fmt.Sprintf("c%d", i), models.ChunkReaderReview, "the ending was devastating"))
	}

	assert.Len(t, Retrieve("ending", chunks, 8), 8)
	assert.Len(t, Retrieve("ending", chunks[:3], 8), 3)
	assert.Len(t, Retrieve("ending", chunks, 0), DefaultTopK)
}

func TestRetrieve_DiversityFirst(t *testing.T) {
	chunks := []models.Chunk{
		chunk("r1", models.ChunkReaderReview, "ending twist"),
		chunk("r2", models.ChunkReaderReview, "ending ending twist"),
		chunk("r3", models.ChunkReaderReview, "ending"),
		chunk("d1", models.ChunkCommunityDiscussion, "people debate the ending in long threads about many other things too"),
		chunk("k1", models.ChunkCriticReview, "critics mention the ending briefly among dozens of other observations here"),
	}

	got := Retrieve("ending twist", chunks, 4)
	require.Len(t, got, 4)

	types := make(map[models.ChunkType]bool)
	for _, c := range got[:3] {
		types[c.Type] = true
	}
	assert.Len(t, types, 3, "first pass should cover every type")
	assert.Equal(t, "r1", got[0].ID, "highest scorer leads")
	assert.Equal(t, "r2", got[3].ID, "fill continues by score")
}

func TestRetrieve_Deterministic(t *testing.T) {
	var chunks []models.Chunk
	types := []models.ChunkType{models.ChunkReaderReview, models.ChunkCommunityDiscussion}
	for i := 0; i < 24; i++ {
		chunks = append(chunks, chunk(fmt.Sprintf("c%d", i), types[i%2], "same text about the narrator"))
	}

	first := ids(Retrieve("narrator", chunks, 8))
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, ids(Retrieve("narrator", chunks, 8)))
	}
	// equal scores keep chunk order
	assert.Equal(t, []string{"c0", "c1", "c2", "c3", "c4", "c5", "c6", "c7"}, first)
}

func TestRetrieve_StopWordQueryFallsBackToSample(t *testing.T) {
	chunks := []models.Chunk{
		chunk("r1", models.ChunkReaderReview, "one"),
		chunk("r2", models.ChunkReaderReview, "two"),
		chunk("r3", models.ChunkReaderReview, "three"),
		chunk("d1", models.ChunkCommunityDiscussion, "four"),
		chunk("k1", models.ChunkCriticReview, "five"),
		chunk("k2", models.ChunkCriticReview, "six"),
	}

	got := Retrieve("what do you think of it?", chunks, 5)
	assert.Equal(t, []string{"r1", "d1", "k1", "r2", "k2"}, ids(got))

	all := Retrieve("is it", chunks, 10)
	assert.Len(t, all, len(chunks))
}

func TestRetrieve_ZeroScoresStillReturned(t *testing.T) {
	chunks := []models.Chunk{
		chunk("r1", models.ChunkReaderReview, "lovely prose"),
		chunk("k1", models.ChunkCriticReview, "formal experiment"),
	}
	got := Retrieve("spaceships", chunks, 8)
	assert.Len(t, got, 2)
}
