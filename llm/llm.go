// Package llm talks to the external text-completion service. It is the only
// package with a network boundary; everything else in the pipeline works on
// in-memory values, so a stub Client makes the whole engine testable offline.
package llm

import (
	"context"
	"fmt"

	"github.com/fabfab/asset-query/config"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string
	Content string
}

// Client generates a completion for an ordered conversation. Implementations
// classify their failures with the package error taxonomy so callers can
// decide what to retry.
type Client interface {
	Generate(ctx context.Context, messages []Message) (string, error)
}

type Options struct {
	Provider string
	Model    string

	OllamaHost    string
	OpenAIAPIKey  string
	OpenAIBaseURL string
}

// NewClient builds the provider selected by configuration. A missing OpenAI
// key is a fatal configuration error, not something worth retrying.
func NewClient(cfg config.Config) (Client, error) {
	opts := Options{
		Provider:      cfg.Provider,
		Model:         cfg.Model,
		OllamaHost:    cfg.OllamaHost,
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
	}

	switch opts.Provider {
	case config.ProviderOllama:
		return NewOllamaClient(opts), nil
	case config.ProviderOpenAI:
		if opts.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("%w: openai provider selected but OPENAI_API_KEY not set", ErrFatal)
		}
		return NewOpenAIClient(opts), nil
	default:
		return nil, fmt.Errorf("%w: unknown llm provider: %s", ErrFatal, opts.Provider)
	}
}
