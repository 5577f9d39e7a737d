// Package llm provides text generation and streaming chat using langchaingo.
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/raphaelgruber/bookpack/internal/config"
	"github.com/raphaelgruber/bookpack/internal/metrics"
	"github.com/raphaelgruber/bookpack/internal/models"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Model wraps a langchaingo LLM for one-shot generation and streamed chat.
type Model struct {
	llm       llms.Model
	modelName string
	metrics   *metrics.Collector
}

// NewModel creates an LLM model based on configuration. A provider whose API
// key is not set still yields a Model; its calls fail with ErrMissingCredential
// and Available reports false.
func NewModel(cfg config.Config, collector *metrics.Collector) (*Model, error) {
	var model llms.Model
	var err error

	switch cfg.LLMProvider {
	case config.ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(cfg.LLMModel),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return New(missingCredential{provider: cfg.LLMProvider}, cfg.LLMModel, collector), nil
		}
		model, err = openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return New(missingCredential{provider: cfg.LLMProvider}, cfg.LLMModel, collector), nil
		}
		model, err = anthropic.New(
			anthropic.WithToken(cfg.AnthropicAPIKey),
			anthropic.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}

	return New(model, cfg.LLMModel, collector), nil
}

// New wraps an existing langchaingo model.
func New(model llms.Model, name string, collector *metrics.Collector) *Model {
	return &Model{llm: model, modelName: name, metrics: collector}
}

// Available reports whether the provider was configured with credentials.
func (m *Model) Available() bool {
	_, missing := m.llm.(missingCredential)
	return !missing
}

// Model returns the LLM model name.
func (m *Model) Model() string {
	return m.modelName
}

// Generate completes a single user prompt.
func (m *Model) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	start := time.Now()
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	response, err := m.llm.GenerateContent(ctx, messages, llms.WithMaxTokens(maxTokens))
	if err != nil {
		m.metrics.RecordFailure(metrics.OpLLMGenerate, time.Since(start))
		return "", fmt.Errorf("generate: %w", wrapFatalError(err))
	}
	if len(response.Choices) == 0 {
		m.metrics.RecordFailure(metrics.OpLLMGenerate, time.Since(start))
		return "", fmt.Errorf("no response choices")
	}

	in, out := usage(response.Choices[0].GenerationInfo)
	m.metrics.RecordLLMUsage(metrics.OpLLMGenerate, time.Since(start), in, out)
	return response.Choices[0].Content, nil
}

// Stream runs one chat turn: the system prompt, the prior history and the
// new user message. Each text fragment is passed to onToken as it arrives;
// an error from onToken stops the stream and is returned.
func (m *Model) Stream(ctx context.Context, system string, history []models.ChatMessage, message string, maxTokens int, onToken func(string) error) error {
	start := time.Now()

	messages := make([]llms.MessageContent, 0, len(history)+2)
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, system))
	for _, turn := range history {
		role := llms.ChatMessageTypeHuman
		if turn.Role == models.RoleAssistant {
			role = llms.ChatMessageTypeAI
		}
		messages = append(messages, llms.TextParts(role, turn.Content))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, message))

	response, err := m.llm.GenerateContent(ctx, messages,
		llms.WithMaxTokens(maxTokens),
		llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
			if len(chunk) == 0 {
				return nil
			}
			return onToken(string(chunk))
		}),
	)
	if err != nil {
		m.metrics.RecordFailure(metrics.OpLLMStream, time.Since(start))
		return fmt.Errorf("stream: %w", wrapFatalError(err))
	}

	var in, out int64
	if len(response.Choices) > 0 {
		in, out = usage(response.Choices[0].GenerationInfo)
	}
	m.metrics.RecordLLMUsage(metrics.OpLLMStream, time.Since(start), in, out)
	return nil
}

// usage reads token counts from provider-specific generation info.
func usage(info map[string]any) (input, output int64) {
	return tokenCount(info, "InputTokens", "PromptTokens", "prompt_eval_count"),
		tokenCount(info, "OutputTokens", "CompletionTokens", "eval_count")
}

func tokenCount(info map[string]any, keys ...string) int64 {
	for _, k := range keys {
		switch v := info[k].(type) {
		case int:
			return int64(v)
		case int32:
			return int64(v)
		case int64:
			return v
		case float64:
			return int64(v)
		}
	}
	return 0
}
