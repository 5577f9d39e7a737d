package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/raphaelgruber/bookpack/internal/llm"
	"github.com/raphaelgruber/bookpack/internal/models"
)

// Landscape synthesis limits.
const (
	LandscapeMaxTokens  = 800
	landscapeSampleSize = 20
	landscapePrompts    = 5
)

// EmptyLandscape is used when no source produced any text.
var EmptyLandscape = models.InterpretiveLandscape{
	CriticConsensus: "Limited critical coverage found.",
	ReaderSentiment: "Reader responses vary widely.",
	TheDebate:       "No strong consensus found in online discussion.",
}

// FallbackLandscape is used when the model call or its output fails.
var FallbackLandscape = models.InterpretiveLandscape{
	CriticConsensus: "Critical perspectives vary across sources.",
	ReaderSentiment: "Reader responses are divided.",
	TheDebate:       "Multiple interpretations coexist in the discourse around this book.",
}

var (
	fenceOpen  = regexp.MustCompile("(?i)^```(?:json)?\\s*")
	fenceClose = regexp.MustCompile("\\s*```$")
)

// Generator completes a single prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// LandscapeSynthesizer summarizes the collected discourse and proposes
// discussion questions.
type LandscapeSynthesizer struct {
	llm    Generator
	logger *slog.Logger
}

// NewLandscapeSynthesizer creates a synthesizer backed by llm.
func NewLandscapeSynthesizer(llm Generator, logger *slog.Logger) *LandscapeSynthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LandscapeSynthesizer{llm: llm, logger: logger}
}

// Synthesize never fails. Without chunks it returns EmptyLandscape and no
// prompts without calling the model; any model or parse failure yields
// FallbackLandscape and no prompts.
func (s *LandscapeSynthesizer) Synthesize(ctx context.Context, meta models.BookMetadata, chunks []models.Chunk) (models.InterpretiveLandscape, []string) {
	if len(chunks) == 0 {
		return EmptyLandscape, []string{}
	}

	text, err := s.llm.Generate(ctx, landscapePrompt(meta, chunks), LandscapeMaxTokens)
	if err != nil {
		if errors.Is(err, llm.ErrFatalAPI) {
			s.logger.Error("landscape generation failed, check LLM credentials and quota", "book_id", meta.ID, "error", err)
		} else {
			s.logger.Warn("landscape generation failed", "book_id", meta.ID, "error", err)
		}
		return FallbackLandscape, []string{}
	}

	landscape, prompts, err := parseLandscape(text)
	if err != nil {
		s.logger.Warn("landscape response unparsable", "book_id", meta.ID, "error", err)
		return FallbackLandscape, []string{}
	}
	return landscape, prompts
}

func landscapePrompt(meta models.BookMetadata, chunks []models.Chunk) string {
	if len(chunks) > landscapeSampleSize {
		chunks = chunks[:landscapeSampleSize]
	}
	excerpts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		excerpts = append(excerpts, fmt.Sprintf("[%s — %s]\n%s", c.Source, c.Type, c.Content))
	}

	return fmt.Sprintf(`You are analyzing reader and critic responses to "%s" by %s.

Based on the following source excerpts:

1. Write THREE very concise summaries (STRICTLY 1-2 sentences each, max 50 words each):
   - CRITICS: What is the critical consensus in one line?
   - READERS: What is the dominant reader sentiment in one line?
   - THE DEBATE: What is the single biggest point of disagreement?

2. Generate exactly 5 SHORT discussion questions (max 15 words each). They are shown as clickable buttons, so keep them brief, e.g. "Is the narrator reliable or in denial?". Be specific to THIS book.

Be specific and grounded in the sources. Keep the three summaries SHORT: they are displayed as cards, not paragraphs.

Return ONLY a JSON object in this format (no markdown, no backticks):
{"criticConsensus": "...", "readerSentiment": "...", "theDebate": "...", "questionPrompts": ["...", "...", "...", "...", "..."]}

Source excerpts:
%s`, meta.Title, meta.Author, strings.Join(excerpts, "\n\n---\n\n"))
}

type landscapeResponse struct {
	CriticConsensus string   `json:"criticConsensus"`
	ReaderSentiment string   `json:"readerSentiment"`
	TheDebate       string   `json:"theDebate"`
	QuestionPrompts []string `json:"questionPrompts"`
}

// parseLandscape decodes the model's JSON answer, tolerating a Markdown
// code fence around it. Missing summaries take their fallback text.
func parseLandscape(text string) (models.InterpretiveLandscape, []string, error) {
	text = strings.TrimSpace(text)
	text = fenceOpen.ReplaceAllString(text, "")
	text = fenceClose.ReplaceAllString(text, "")

	var resp landscapeResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		return models.InterpretiveLandscape{}, nil, fmt.Errorf("decode landscape: %w", err)
	}
	if resp.CriticConsensus == "" && resp.ReaderSentiment == "" && resp.TheDebate == "" {
		return models.InterpretiveLandscape{}, nil, errors.New("landscape has no summaries")
	}

	landscape := models.InterpretiveLandscape{
		CriticConsensus: orDefault(resp.CriticConsensus, FallbackLandscape.CriticConsensus),
		ReaderSentiment: orDefault(resp.ReaderSentiment, FallbackLandscape.ReaderSentiment),
		TheDebate:       orDefault(resp.TheDebate, FallbackLandscape.TheDebate),
	}

	prompts := make([]string, 0, landscapePrompts)
	for _, p := range resp.QuestionPrompts {
		if p = strings.TrimSpace(p); p != "" && len(prompts) < landscapePrompts {
			prompts = append(prompts, p)
		}
	}
	return landscape, prompts, nil
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return def
}
