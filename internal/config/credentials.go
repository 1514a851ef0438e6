package config

import (
	"errors"
	"fmt"
	"os"
)

// ErrMissingCredentials is returned when a configured provider needs an API
// key that is not present in the environment.
var ErrMissingCredentials = errors.New("missing credentials")

// CredentialError names the environment variable that was expected.
type CredentialError struct {
	Provider ProviderType
	EnvVar   string
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("%s requires %s to be set (environment or .env file)", e.Provider, e.EnvVar)
}

func (e *CredentialError) Unwrap() error { return ErrMissingCredentials }

// Credentials holds the secrets and endpoints resolved at startup.
type Credentials struct {
	OpenAIKey    string
	AnthropicKey string
	OllamaHost   string
}

// APIKey returns the key for the given provider, or "" when it needs none.
func (c Credentials) APIKey(provider ProviderType) string {
	switch provider {
	case ProviderOpenAI:
		return c.OpenAIKey
	case ProviderAnthropic:
		return c.AnthropicKey
	default:
		return ""
	}
}

// ResolveCredentials reads the API keys needed by the configured chat and
// embedding providers. A missing key is a *CredentialError wrapping
// ErrMissingCredentials; callers must not proceed to build or query.
func (c *Config) ResolveCredentials() (Credentials, error) {
	creds := Credentials{
		OpenAIKey:    os.Getenv(APIKeyEnvVar(ProviderOpenAI)),
		AnthropicKey: os.Getenv(APIKeyEnvVar(ProviderAnthropic)),
		OllamaHost:   os.Getenv("OLLAMA_HOST"),
	}
	if creds.OllamaHost == "" {
		creds.OllamaHost = "http://localhost:11434"
	}

	for _, p := range []ProviderType{c.Provider, c.EmbeddingProvider} {
		envVar := APIKeyEnvVar(p)
		if envVar == "" {
			continue
		}
		if creds.APIKey(p) == "" {
			return Credentials{}, &CredentialError{Provider: p, EnvVar: envVar}
		}
	}
	return creds, nil
}
