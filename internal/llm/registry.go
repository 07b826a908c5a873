package llm

import (
	"fmt"

	"github.com/seenimoa/newspulse/internal/config"
)

// Registry holds the providers that could be constructed from configuration,
// keyed by provider name.
type Registry map[string]Provider

// NewRegistry builds providers for every vendor with a configured API key.
// Vendors without keys are skipped silently; an empty registry is an error
// since the pipeline cannot enrich anything without at least one provider.
func NewRegistry(cfg config.LLMConfig) (Registry, error) {
	opts := DefaultOptions()
	if cfg.Temperature > 0 {
		opts.Temperature = cfg.Temperature
	}
	if cfg.MaxTokens > 0 {
		opts.MaxTokens = cfg.MaxTokens
	}
	reg := make(Registry)

	if cfg.GroqKey != "" {
		gopts := []GroqOption{WithGroqOptions(opts)}
		if cfg.GroqModel != "" {
			gopts = append(gopts, WithGroqModel(cfg.GroqModel))
		}
		p, err := NewGroqProvider(cfg.GroqKey, gopts...)
		if err != nil {
			return nil, fmt.Errorf("groq: %w", err)
		}
		reg[ProviderGroq] = p
	}
	if cfg.GeminiKey != "" {
		gopts := []GeminiOption{WithGeminiOptions(opts)}
		if cfg.GeminiModel != "" {
			gopts = append(gopts, WithGeminiModel(cfg.GeminiModel))
		}
		p, err := NewGeminiProvider(cfg.GeminiKey, gopts...)
		if err != nil {
			return nil, fmt.Errorf("gemini: %w", err)
		}
		reg[ProviderGemini] = p
	}
	if cfg.OpenAIKey != "" {
		oopts := []OpenAIOption{WithOpenAIOptions(opts)}
		if cfg.OpenAIModel != "" {
			oopts = append(oopts, WithOpenAIModel(cfg.OpenAIModel))
		}
		p, err := NewOpenAIProvider(cfg.OpenAIKey, oopts...)
		if err != nil {
			return nil, fmt.Errorf("openai: %w", err)
		}
		reg[ProviderOpenAI] = p
	}
	if cfg.AnthropicKey != "" {
		aopts := []AnthropicOption{WithAnthropicOptions(opts)}
		if cfg.AnthropicModel != "" {
			aopts = append(aopts, WithAnthropicModel(cfg.AnthropicModel))
		}
		p, err := NewAnthropicProvider(cfg.AnthropicKey, aopts...)
		if err != nil {
			return nil, fmt.Errorf("anthropic: %w", err)
		}
		reg[ProviderAnthropic] = p
	}

	if len(reg) == 0 {
		return nil, fmt.Errorf("%w: no provider API keys configured", ErrNoAPIKey)
	}
	return reg, nil
}

// Names returns the registered provider names.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	return names
}
