package models

import "time"

// InterpretiveLandscape is the three-part summary of the discourse around a book.
type InterpretiveLandscape struct {
	CriticConsensus string `json:"criticConsensus"`
	ReaderSentiment string `json:"readerSentiment"`
	TheDebate       string `json:"theDebate"`
}

// BookKnowledge is the knowledge pack for one book, keyed by Metadata.ID.
type BookKnowledge struct {
	Metadata              BookMetadata          `json:"metadata"`
	Chunks                []Chunk               `json:"chunks"`
	InterpretiveLandscape InterpretiveLandscape `json:"interpretiveLandscape"`
	QuestionPrompts       []string              `json:"questionPrompts"`
	ChunkCount            int                   `json:"chunkCount"`
	IngestedAt            time.Time             `json:"ingestedAt"`
	Sources               []string              `json:"sources"`
}

// NewBookKnowledge assembles a pack, deriving ChunkCount from chunks.
func NewBookKnowledge(meta BookMetadata, chunks []Chunk, landscape InterpretiveLandscape, prompts, sources []string) *BookKnowledge {
	if chunks == nil {
		chunks = []Chunk{}
	}
	if prompts == nil {
		prompts = []string{}
	}
	if sources == nil {
		sources = []string{}
	}
	return &BookKnowledge{
		Metadata:              meta,
		Chunks:                chunks,
		InterpretiveLandscape: landscape,
		QuestionPrompts:       prompts,
		ChunkCount:            len(chunks),
		IngestedAt:            time.Now().UTC(),
		Sources:               sources,
	}
}
