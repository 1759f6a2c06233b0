// Package config loads application configuration from defaults, an optional
// .env file, and environment variables (highest priority).
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"

	// BudgetChars measures the context budget in runes, BudgetTokens in
	// tiktoken tokens for the configured model.
	BudgetChars  = "chars"
	BudgetTokens = "tokens"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Provider string `koanf:"provider"`
	Model    string `koanf:"model"`

	OpenAIAPIKey  string `koanf:"openai_api_key"`
	OpenAIBaseURL string `koanf:"openai_base_url"`
	OllamaHost    string `koanf:"ollama_host"`

	AssetIndexPath    string `koanf:"asset_index_path"`
	KnowledgeBasePath string `koanf:"knowledge_base_path"`

	// Persona is the system role text fed to the completion service. It is
	// plain configuration, not behavior: swapping it changes the specialist
	// the answers speak as.
	Persona string `koanf:"persona"`

	MaxAssets      int           `koanf:"max_assets"`
	MaxSections    int           `koanf:"max_sections"`
	MaxContextSize int           `koanf:"max_context_size"`
	ContextBudget  string        `koanf:"context_budget"`
	TermWeight     int           `koanf:"term_weight"`
	PhraseWeight   int           `koanf:"phrase_weight"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
	MaxRetries     int           `koanf:"max_retries"`
	HistoryLimit   int           `koanf:"history_limit"`

	LogLevel string `koanf:"log_level"`
}

const defaultPersona = "You are an asset management specialist answering questions " +
	"about an asset register, with working knowledge of ISO 55000 asset management " +
	"standards. Ground every answer in the supplied context and cite the tags of the " +
	"assets and sections you used, e.g. [Asset A-001] or [Section 4.2]. If the context " +
	"does not cover the question, say so plainly before answering from general knowledge."

func defaults() Config {
	return Config{
		Provider:          ProviderOllama,
		Model:             "llama3.1",
		OllamaHost:        "http://localhost:11434",
		AssetIndexPath:    "data/asset_index.json",
		KnowledgeBasePath: "data/knowledge_base.json",
		Persona:           defaultPersona,
		MaxAssets:         5,
		MaxSections:       3,
		MaxContextSize:    4000,
		ContextBudget:     BudgetChars,
		TermWeight:        1,
		PhraseWeight:      3,
		RequestTimeout:    60 * time.Second,
		MaxRetries:        2,
		HistoryLimit:      6,
		LogLevel:          "info",
	}
}

// Load builds the configuration. A .env file in the working directory is
// honored when present; real environment variables win over it.
func Load() (Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if err := k.Load(env.Provider(".", env.Opt{
		TransformFunc: func(key, value string) (string, any) {
			return strings.ToLower(key), value
		},
	}), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Provider {
	case ProviderOllama, ProviderOpenAI:
	default:
		return fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, c.Provider)
	}
	switch c.ContextBudget {
	case BudgetChars, BudgetTokens:
	default:
		return fmt.Errorf("%w: context_budget must be %q or %q, got %q",
			ErrInvalidConfig, BudgetChars, BudgetTokens, c.ContextBudget)
	}
	if c.MaxAssets < 0 || c.MaxSections < 0 {
		return fmt.Errorf("%w: retrieval caps must not be negative", ErrInvalidConfig)
	}
	if c.MaxContextSize <= 0 {
		return fmt.Errorf("%w: max_context_size must be positive", ErrInvalidConfig)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: request_timeout must be positive", ErrInvalidConfig)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: max_retries must not be negative", ErrInvalidConfig)
	}
	if c.HistoryLimit < 0 {
		return fmt.Errorf("%w: history_limit must not be negative", ErrInvalidConfig)
	}
	return nil
}
