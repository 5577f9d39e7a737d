// Package parser turns scraped text into bounded, sentence-aligned chunks.
package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/raphaelgruber/bookpack/internal/models"
)

// DefaultMaxSize approximates a fixed token budget per chunk.
const DefaultMaxSize = 1600

// ChunkConfig defines chunking parameters.
type ChunkConfig struct {
	// MaxSize: maximum chunk length in characters. A single sentence longer
	// than this is emitted whole.
	MaxSize int
	// NewID generates chunk ids. Defaults to random UUIDs.
	NewID func() string
}

// DefaultChunkConfig returns sensible defaults.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxSize: DefaultMaxSize,
		NewID:   uuid.NewString,
	}
}

// Provenance tags every chunk cut from one piece of text.
type Provenance struct {
	Source    string
	SourceURL string
	Type      models.ChunkType
	Rating    int
}

// ChunkText splits text into chunks tagged with prov.
// Empty or whitespace-only text yields no chunks.
func ChunkText(text string, prov Provenance, config ChunkConfig) []models.Chunk {
	newID := config.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	parts := SplitText(text, config.MaxSize)
	chunks := make([]models.Chunk, 0, len(parts))
	for _, p := range parts {
		chunks = append(chunks, models.Chunk{
			ID:        newID(),
			Content:   p,
			Source:    prov.Source,
			SourceURL: prov.SourceURL,
			Type:      prov.Type,
			Rating:    prov.Rating,
		})
	}
	return chunks
}

// SplitText greedily packs sentences into pieces of at most maxSize characters.
func SplitText(text string, maxSize int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if runeLen(text) <= maxSize {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder
	currentLen := 0

	for _, sentence := range splitSentences(text) {
		n := runeLen(sentence)

		// Flush when the next sentence would not fit
		if currentLen > 0 && currentLen+1+n > maxSize {
			chunks = append(chunks, current.String())
			current.Reset()
			currentLen = 0
		}

		if currentLen > 0 {
			current.WriteByte(' ')
			currentLen++
		}
		current.WriteString(sentence)
		currentLen += n
	}

	if currentLen > 0 {
		chunks = append(chunks, current.String())
	}

	return chunks
}

// splitSentences splits after '.', '!' or '?' when followed by whitespace.
// The separating whitespace is dropped; sentences are never empty.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		current.WriteRune(r)

		if (r == '.' || r == '!' || r == '?') && i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
			for i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
				i++
			}
		}
	}

	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}

	return sentences
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
