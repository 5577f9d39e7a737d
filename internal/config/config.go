package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LLM provider names.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
)

// DefaultModel is the chat and synthesis model used when LLM_MODEL is unset.
const DefaultModel = "claude-sonnet-4-6"

// Config holds all configuration values.
type Config struct {
	// Catalog and source credentials. Empty keys use the public tier.
	GoogleBooksAPIKey string `yaml:"google_books_api_key"`
	GuardianAPIKey    string `yaml:"guardian_api_key"`

	// LLM
	LLMProvider     string `yaml:"llm_provider"`
	LLMModel        string `yaml:"llm_model"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	OpenAIAPIKey    string `yaml:"openai_api_key"`
	OllamaHost      string `yaml:"ollama_host"`

	// Server
	ServerPort    string        `yaml:"server_port"`
	IngestTimeout time.Duration `yaml:"-"`
	StoreSize     int           `yaml:"store_size"`
	StoreTTL      time.Duration `yaml:"-"`
	OTLPEndpoint  string        `yaml:"otlp_endpoint"`

	// Client
	ServerURL string `yaml:"server_url"`

	// Logging
	LogFile  string     `yaml:"log_file"`
	LogLevel slog.Level `yaml:"-"`
}

// Load reads configuration from an optional YAML file named by BOOKPACK_CONFIG
// and then from environment variables. Environment values win.
func Load() Config {
	cfg := Config{
		GuardianAPIKey: "test",
		LLMProvider:    ProviderAnthropic,
		LLMModel:       DefaultModel,
		OllamaHost:     "http://localhost:11434",
		ServerPort:     "8484",
		IngestTimeout:  2 * time.Minute,
		ServerURL:      "http://localhost:8484",
		LogLevel:       slog.LevelInfo,
	}

	if path := os.Getenv("BOOKPACK_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			slog.Warn("failed to read config file, using environment only", "file", path, "error", err)
		}
	}

	cfg.GoogleBooksAPIKey = getEnv("GOOGLE_BOOKS_API_KEY", cfg.GoogleBooksAPIKey)
	cfg.GuardianAPIKey = getEnv("GUARDIAN_API_KEY", cfg.GuardianAPIKey)

	cfg.LLMProvider = strings.ToLower(getEnv("LLM_PROVIDER", cfg.LLMProvider))
	cfg.LLMModel = getEnv("LLM_MODEL", cfg.LLMModel)
	cfg.AnthropicAPIKey = getEnv("ANTHROPIC_API_KEY", cfg.AnthropicAPIKey)
	cfg.OpenAIAPIKey = getEnv("OPENAI_API_KEY", cfg.OpenAIAPIKey)
	cfg.OllamaHost = getEnv("OLLAMA_HOST", cfg.OllamaHost)

	cfg.ServerPort = getEnv("BOOKPACK_SERVER_PORT", cfg.ServerPort)
	cfg.IngestTimeout = getEnvDuration("BOOKPACK_INGEST_TIMEOUT", cfg.IngestTimeout)
	cfg.StoreSize = getEnvInt("BOOKPACK_STORE_SIZE", cfg.StoreSize)
	cfg.StoreTTL = getEnvDuration("BOOKPACK_STORE_TTL", cfg.StoreTTL)
	cfg.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTLPEndpoint)

	cfg.ServerURL = getEnv("BOOKPACK_SERVER_URL", cfg.ServerURL)

	cfg.LogFile = getEnv("BOOKPACK_LOG_FILE", cfg.LogFile)
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		cfg.LogLevel = ParseLevel(lvl)
	}

	return cfg
}

// fileConfig mirrors Config for YAML decoding; durations and level are strings.
type fileConfig struct {
	Config        `yaml:",inline"`
	IngestTimeout string `yaml:"ingest_timeout"`
	StoreTTL      string `yaml:"store_ttl"`
	LogLevel      string `yaml:"log_level"`
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	return c.applyYAML(data)
}

func (c *Config) applyYAML(data []byte) error {
	fc := fileConfig{Config: *c}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	next := fc.Config
	next.IngestTimeout = c.IngestTimeout
	next.StoreTTL = c.StoreTTL
	next.LogLevel = c.LogLevel

	if fc.IngestTimeout != "" {
		d, err := time.ParseDuration(fc.IngestTimeout)
		if err != nil {
			return fmt.Errorf("ingest_timeout: %w", err)
		}
		next.IngestTimeout = d
	}
	if fc.StoreTTL != "" {
		d, err := time.ParseDuration(fc.StoreTTL)
		if err != nil {
			return fmt.Errorf("store_ttl: %w", err)
		}
		next.StoreTTL = d
	}
	if fc.LogLevel != "" {
		next.LogLevel = ParseLevel(fc.LogLevel)
	}

	*c = next
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		slog.Warn("invalid integer in environment, using default", "key", key, "value", val)
		return defaultVal
	}
	return n
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		slog.Warn("invalid duration in environment, using default", "key", key, "value", val)
		return defaultVal
	}
	return d
}
