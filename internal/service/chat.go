package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/raphaelgruber/bookpack/internal/models"
	"github.com/raphaelgruber/bookpack/internal/retrieval"
	"github.com/raphaelgruber/bookpack/internal/store"
)

// ChatMaxTokens bounds one chat reply.
const ChatMaxTokens = 1024

// Streamer runs one streamed chat turn.
type Streamer interface {
	Stream(ctx context.Context, system string, history []models.ChatMessage, message string, maxTokens int, onToken func(string) error) error
}

// ChatService answers questions about ingested books.
type ChatService struct {
	store  store.KnowledgeStore
	llm    Streamer
	logger *slog.Logger
}

// NewChatService creates a chat service reading packs from st.
func NewChatService(st store.KnowledgeStore, llm Streamer, logger *slog.Logger) *ChatService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatService{store: st, llm: llm, logger: logger}
}

// ChatTurn is a prepared turn: the prompt is built and the sources are
// known before any token is generated.
type ChatTurn struct {
	BookID  string
	System  string
	Sources []string

	history []models.ChatMessage
	message string
	llm     Streamer
}

// Prepare validates req, retrieves the passages for its message and builds
// the system prompt. Returns models.ErrInvalidInput when the book id or
// message is missing and models.ErrNotIngested when the book has no pack.
func (s *ChatService) Prepare(req models.ChatRequest) (*ChatTurn, error) {
	if strings.TrimSpace(req.BookID) == "" || strings.TrimSpace(req.Message) == "" {
		return nil, fmt.Errorf("%w: bookId and message required", models.ErrInvalidInput)
	}

	k, ok := s.store.Get(req.BookID)
	if !ok {
		return nil, models.ErrNotIngested
	}

	passages := retrieval.Retrieve(req.Message, k.Chunks, retrieval.DefaultTopK)
	s.logger.Debug("passages retrieved", "book_id", req.BookID, "passages", len(passages))

	return &ChatTurn{
		BookID:  req.BookID,
		System:  BuildSystemPrompt(k.Metadata, passages, k.Sources),
		Sources: models.UniqueSources(passages),
		history: req.History,
		message: req.Message,
		llm:     s.llm,
	}, nil
}

// Stream generates the reply, passing text to onToken unchanged as it arrives.
func (t *ChatTurn) Stream(ctx context.Context, onToken func(string) error) error {
	return t.llm.Stream(ctx, t.System, t.history, t.message, ChatMaxTokens, onToken)
}

// Ask runs a full turn and returns the collected reply with its sources.
func (s *ChatService) Ask(ctx context.Context, req models.ChatRequest) (string, []string, error) {
	turn, err := s.Prepare(req)
	if err != nil {
		return "", nil, err
	}
	var answer strings.Builder
	if err := turn.Stream(ctx, func(tok string) error {
		answer.WriteString(tok)
		return nil
	}); err != nil {
		return "", nil, err
	}
	return answer.String(), turn.Sources, nil
}

// BuildSystemPrompt assembles the companion persona around the book's
// identity, its source coverage and the retrieved passages.
func BuildSystemPrompt(meta models.BookMetadata, passages []models.Chunk, sources []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are a knowledgeable book companion for \"%s\" by %s", meta.Title, meta.Author)
	if meta.Year != 0 {
		fmt.Fprintf(&b, " (%d)", meta.Year)
	}
	b.WriteString(".\n\n")

	sourceList := "limited sources available"
	if len(sources) > 0 {
		sourceList = strings.Join(sources, ", ")
	}
	b.WriteString("You have access to the following knowledge sources: " + sourceList + "\n")

	counts := make(map[models.ChunkType]int)
	for _, p := range passages {
		counts[p.Type]++
	}
	if n := counts[models.ChunkReaderReview]; n > 0 {
		fmt.Fprintf(&b, "- Goodreads: %d reader reviews\n", n)
	}
	if counts[models.ChunkCriticReview] > 0 {
		b.WriteString("- Critical reviews from literary press\n")
	}
	if counts[models.ChunkCommunityDiscussion] > 0 {
		b.WriteString("- Reddit discussions\n")
	}
	if counts[models.ChunkAuthorInterview] > 0 {
		b.WriteString("- Author interviews\n")
	}
	if len(sources) == 0 {
		b.WriteString("- Note: Limited online discussion was found — drawing on training knowledge directly.\n")
	}

	b.WriteString(companionRules)

	if len(passages) == 0 {
		b.WriteString("\n\n[No specific source passages retrieved for this query — draw on your training knowledge about this book.]")
		return b.String()
	}

	blocks := make([]string, 0, len(passages))
	for _, p := range passages {
		label := p.Source
		if p.Rating > 0 {
			label = fmt.Sprintf("%s (%d★)", p.Source, p.Rating)
		}
		blocks = append(blocks, "--- "+label+" ---\n"+p.Content)
	}
	b.WriteString("\n\nRelevant source passages:\n")
	b.WriteString(strings.Join(blocks, "\n\n"))
	return b.String()
}

const companionRules = `
Your role is to help the user process, understand, and discuss this book, as a thoughtful companion who has read it and absorbed the discourse around it.

Core principles:
- Assume the user has finished the book. Discuss freely, including the ending.
- Do NOT summarise the plot unless explicitly asked. The user knows it.
- Be specific. Reference actual scenes, passages, characters, structural choices.
- Surface interpretive tensions: where readers disagree, where critics diverge from audiences, where the book resists easy reading.
- When drawing from sources, name them naturally: "Goodreads readers broadly felt...", "The Guardian argues...", "Reddit discussions often circle around..."
- Never just tell the user what something means. Offer readings. Ask questions. Help them arrive at their own synthesis.
- Match the user's energy: analytical, emotional, casual, whatever they bring.
- If sources are limited, be transparent: "There isn't much critical coverage of this one, but..."
- Keep responses conversational and focused, not lecture-length.`
