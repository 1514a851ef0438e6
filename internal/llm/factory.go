package llm

import (
	"fmt"
)

// Options selects and configures a provider.
type Options struct {
	// Type is one of "openai", "anthropic", "ollama".
	Type  string
	Model string
	// APIKey is required for openai and anthropic.
	APIKey string
	// BaseURL overrides the provider endpoint; for ollama it is the host.
	BaseURL string
	// RequestsPerMinute wraps the provider in a rate limiter when positive.
	RequestsPerMinute int
}

// NewProvider creates a new LLM provider from opts.
func NewProvider(opts Options) (Provider, error) {
	var p Provider
	switch opts.Type {
	case "anthropic":
		if opts.APIKey == "" {
			return nil, fmt.Errorf("anthropic provider requires an API key (ANTHROPIC_API_KEY)")
		}
		p = NewAnthropicProvider(opts.APIKey, opts.Model, opts.BaseURL)

	case "openai":
		if opts.APIKey == "" {
			return nil, fmt.Errorf("openai provider requires an API key (OPENAI_API_KEY)")
		}
		p = NewOpenAIProvider(opts.APIKey, opts.Model, opts.BaseURL)

	case "ollama":
		host := opts.BaseURL
		if host == "" {
			host = "http://localhost:11434"
		}
		p = NewOllamaProvider(host, opts.Model)

	default:
		return nil, fmt.Errorf("unsupported provider type: %s", opts.Type)
	}

	if opts.RequestsPerMinute > 0 {
		p = NewRateLimitedProvider(p, opts.RequestsPerMinute)
	}
	return p, nil
}
