// Package retrieval ranks a book's chunks against a chat message using
// lexical overlap with type weighting and a diversity constraint.
package retrieval

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/raphaelgruber/bookpack/internal/models"
)

// DefaultTopK is the number of chunks handed to the chat prompt.
const DefaultTopK = 8

// Scoring constants.
const (
	ExactMatchWeight   = 1.0
	PartialMatchWeight = 0.5
	MinTokenLen        = 3
	CandidateFactor    = 2
)

// TypeWeights boosts analytical evidence types. Types not listed weigh 1.
var TypeWeights = map[models.ChunkType]float64{
	models.ChunkCriticReview:    1.3,
	models.ChunkAuthorInterview: 1.4,
}

var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "is": true, "it": true, "in": true, "on": true,
	"at": true, "to": true, "for": true, "of": true, "and": true, "or": true, "but": true,
	"with": true, "this": true, "that": true, "was": true, "are": true, "be": true,
	"been": true, "have": true, "has": true, "had": true, "do": true, "did": true,
	"what": true, "how": true, "why": true, "when": true, "where": true, "i": true,
	"you": true, "he": true, "she": true, "we": true, "they": true, "me": true,
	"him": true, "her": true, "us": true, "them": true,
}

var nonWord = regexp.MustCompile(`[^\w\s]`)

// Tokenize lowercases text, strips non-word characters and drops short
// tokens and stop words.
func Tokenize(text string) []string {
	cleaned := nonWord.ReplaceAllString(strings.ToLower(text), " ")
	fields := strings.Fields(cleaned)

	tokens := fields[:0]
	for _, f := range fields {
		if len(f) < MinTokenLen || stopWords[f] {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// Score rates one chunk against the query tokens.
func Score(queryTokens []string, chunk models.Chunk) float64 {
	chunkTokens := Tokenize(chunk.Content)

	set := make(map[string]struct{}, len(chunkTokens))
	distinct := make([]string, 0, len(chunkTokens))
	for _, ct := range chunkTokens {
		if _, ok := set[ct]; ok {
			continue
		}
		set[ct] = struct{}{}
		distinct = append(distinct, ct)
	}

	var score float64
	for _, qt := range queryTokens {
		if _, ok := set[qt]; ok {
			score += ExactMatchWeight
		}
		for _, ct := range distinct {
			if ct != qt && strings.Contains(ct, qt) {
				score += PartialMatchWeight
			}
		}
	}

	score /= math.Log(float64(len(chunkTokens)) + 2)

	if w, ok := TypeWeights[chunk.Type]; ok {
		score *= w
	}
	return score
}

// Retrieve returns at most topK chunks for query, diversity first and then
// by score. A query with no meaningful tokens yields a round-robin sample
// across chunk types. Results are deterministic for a given chunk order.
func Retrieve(query string, chunks []models.Chunk, topK int) []models.Chunk {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if len(chunks) == 0 {
		return []models.Chunk{}
	}

	queryTokens := Tokenize(query)
	if len(queryTokens) == 0 {
		return diversitySample(chunks, topK)
	}

	type scored struct {
		idx   int
		score float64
	}
	ranked := make([]scored, len(chunks))
	for i, c := range chunks {
		ranked[i] = scored{idx: i, score: Score(queryTokens, c)}
	}

	// Stable sort keeps chunk order as the tie-break
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].score > ranked[b].score
	})

	limit := min(len(ranked), topK*CandidateFactor)
	candidates := make([]int, limit)
	for i := 0; i < limit; i++ {
		candidates[i] = ranked[i].idx
	}

	return ensureDiversity(chunks, candidates, topK)
}

// ensureDiversity takes one candidate per type in rank order, then fills
// the remaining slots by rank.
func ensureDiversity(chunks []models.Chunk, candidates []int, topK int) []models.Chunk {
	result := make([]models.Chunk, 0, min(topK, len(candidates)))
	taken := make(map[int]bool, len(candidates))
	seenTypes := make(map[models.ChunkType]bool)

	for _, idx := range candidates {
		if len(result) >= topK {
			break
		}
		t := chunks[idx].Type
		if seenTypes[t] {
			continue
		}
		seenTypes[t] = true
		taken[idx] = true
		result = append(result, chunks[idx])
	}

	for _, idx := range candidates {
		if len(result) >= topK {
			break
		}
		if taken[idx] {
			continue
		}
		taken[idx] = true
		result = append(result, chunks[idx])
	}

	return result
}

// diversitySample round-robins across type buckets in first-seen order.
func diversitySample(chunks []models.Chunk, topK int) []models.Chunk {
	var order []models.ChunkType
	buckets := make(map[models.ChunkType][]models.Chunk)
	for _, c := range chunks {
		if _, ok := buckets[c.Type]; !ok {
			order = append(order, c.Type)
		}
		buckets[c.Type] = append(buckets[c.Type], c)
	}

	result := make([]models.Chunk, 0, min(topK, len(chunks)))
	for round := 0; len(result) < topK; round++ {
		added := false
		for _, t := range order {
			if len(result) >= topK {
				break
			}
			if round < len(buckets[t]) {
				result = append(result, buckets[t][round])
				added = true
			}
		}
		if !added {
			break
		}
	}
	return result
}
