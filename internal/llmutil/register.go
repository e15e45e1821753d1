// Package llmutil wires the built-in LLM providers into a factory. It lives
// apart from package llm so the factory registrations can import the
// provider subpackages without a cycle.
package llmutil

import (
	"github.com/cortexhq/cortex/internal/config"
	"github.com/cortexhq/cortex/internal/llm"
	"github.com/cortexhq/cortex/internal/llm/anthropic"
	"github.com/cortexhq/cortex/internal/llm/openai"
)

// RegisterBuiltins adds the anthropic provider and every OpenAI-compatible
// preset (openai, gemini, groq, ollama, deepseek, custom) to factory.
func RegisterBuiltins(factory *llm.ProviderFactory) {
	factory.Register("anthropic", func(c llm.ProviderConfig) (llm.Provider, error) {
		return anthropic.New(c.APIKey, c.Model, c.BaseURL), nil
	})
	for name, url := range llm.KnownProviders {
		if name == "anthropic" {
			continue
		}
		preset := url
		factory.Register(name, func(c llm.ProviderConfig) (llm.Provider, error) {
			base := c.BaseURL
			if base == "" {
				base = preset
			}
			return openai.New(c.APIKey, c.Model, base, c.EmbedModel), nil
		})
	}
}

// NewProvider builds the configured provider, wrapped with retry and rate
// limiting. When embed_provider is set, embeddings go to a second provider
// while completions stay on the primary one.
func NewProvider(cfg config.LLMConfig) (llm.Provider, error) {
	factory := llm.NewFactory()
	RegisterBuiltins(factory)

	provider, err := factory.Create(llm.ProviderConfig{
		Provider:   cfg.Provider,
		APIKey:     cfg.APIKey,
		Model:      cfg.Model,
		BaseURL:    cfg.BaseURL,
		EmbedModel: cfg.EmbedModel,
		Timeout:    cfg.Timeout,
		MaxRetries: cfg.MaxRetries,
	})
	if err != nil {
		return nil, err
	}

	if cfg.EmbedProvider != "" && cfg.EmbedProvider != cfg.Provider {
		apiKey := cfg.EmbedAPIKey
		if apiKey == "" {
			apiKey = cfg.APIKey
		}
		embedder, err := factory.Create(llm.ProviderConfig{
			Provider:   cfg.EmbedProvider,
			APIKey:     apiKey,
			EmbedModel: cfg.EmbedModel,
			Timeout:    cfg.Timeout,
			MaxRetries: cfg.MaxRetries,
		})
		if err != nil {
			return nil, err
		}
		provider = llm.Split(provider, embedder)
	}

	return llm.WithRateLimit(provider, llm.DefaultRateLimitConfig()), nil
}
