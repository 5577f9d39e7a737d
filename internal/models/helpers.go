package models

import (
	"strings"
	"unicode/utf8"
)

// TruncateRunes returns at most n runes of s.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// UniqueSources returns the distinct source names of chunks in first-seen order.
func UniqueSources(chunks []Chunk) []string {
	seen := make(map[string]bool, len(chunks))
	out := []string{}
	for _, c := range chunks {
		if c.Source == "" || seen[c.Source] {
			continue
		}
		seen[c.Source] = true
		out = append(out, c.Source)
	}
	return out
}

// QuoteLen bounds an ambient quote in runes.
const QuoteLen = 200

// AmbientQuote picks a short excerpt for display during ingestion: the first
// reader review, else the first community discussion.
func AmbientQuote(chunks []Chunk) string {
	for _, want := range []ChunkType{ChunkReaderReview, ChunkCommunityDiscussion} {
		for _, c := range chunks {
			if c.Type == want {
				return strings.TrimSpace(TruncateRunes(c.Content, QuoteLen))
			}
		}
	}
	return ""
}
