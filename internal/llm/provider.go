package llm

import "context"

// Provider defines the interface for LLM providers.
type Provider interface {
	// Complete sends a completion request and returns the response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	// Name returns the name of this provider.
	Name() string
}

// Generate sends prompt as a single user message.
func Generate(ctx context.Context, p Provider, prompt string, temperature float64) (*CompletionResponse, error) {
	return p.Complete(ctx, CompletionRequest{
		Messages:    []Message{{Role: RoleUser, Content: prompt}},
		Temperature: temperature,
	})
}
