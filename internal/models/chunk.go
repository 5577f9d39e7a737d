package models

// ChunkType classifies the kind of evidence a chunk carries.
type ChunkType string

const (
	ChunkReaderReview        ChunkType = "reader_review"
	ChunkCriticReview        ChunkType = "critic_review"
	ChunkAuthorInterview     ChunkType = "author_interview"
	ChunkCommunityDiscussion ChunkType = "community_discussion"
)

// Valid reports whether t is one of the known chunk types.
func (t ChunkType) Valid() bool {
	switch t {
	case ChunkReaderReview, ChunkCriticReview, ChunkAuthorInterview, ChunkCommunityDiscussion:
		return true
	}
	return false
}

// Source display names.
const (
	SourceGoodreads   = "Goodreads"
	SourceReddit      = "Reddit"
	SourceGuardian    = "The Guardian"
	SourceLiteraryHub = "Literary Hub"
)

// Chunk is a bounded, provenance-tagged piece of text used as retrievable evidence.
type Chunk struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Source    string    `json:"source"`
	SourceURL string    `json:"sourceUrl,omitempty"`
	Type      ChunkType `json:"type"`
	Rating    int       `json:"rating,omitempty"` // 1-5, reader reviews only; 0 = none
}
