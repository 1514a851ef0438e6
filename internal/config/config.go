package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix marks environment variables that override config keys.
// Nested keys use a double underscore: MANUALQA_OCR__BATCH_SIZE -> ocr.batch_size.
const EnvPrefix = "MANUALQA_"

// promptSlots lists the placeholders every prompt template must carry.
var promptSlots = []string{"{context}", "{chat_history}", "{question}"}

// LoadDotEnv reads KEY=VALUE pairs from path into the process environment.
// Variables that are already set win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", path, err)
	}
	return nil
}

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (MANUALQA_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating config dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validProviders = map[ProviderType]bool{
	ProviderAnthropic: true,
	ProviderOpenAI:    true,
	ProviderOllama:    true,
}

// Anthropic has no embeddings endpoint.
var validEmbeddingProviders = map[ProviderType]bool{
	ProviderOpenAI: true,
	ProviderOllama: true,
}

var validVectorStores = map[VectorStoreType]bool{
	VectorStoreChromem:  true,
	VectorStorePGVector: true,
}

// Validate checks that the configuration contains valid values.
// It does not look at credentials; see ResolveCredentials.
func (c *Config) Validate() error {
	if c.DataFolder == "" {
		return fmt.Errorf("data_folder is required")
	}
	if c.IndexPath == "" {
		return fmt.Errorf("index_path is required")
	}

	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("chunk_overlap must be in [0, chunk_size), got %d", c.ChunkOverlap)
	}

	for _, slot := range promptSlots {
		if !strings.Contains(c.PromptTemplate, slot) {
			return fmt.Errorf("prompt_template is missing the %s placeholder", slot)
		}
	}

	if c.SimilarityTopK < 1 {
		return fmt.Errorf("similarity_top_k must be at least 1, got %d", c.SimilarityTopK)
	}
	if c.CitationThreshold < -1 || c.CitationThreshold > 1 {
		return fmt.Errorf("citation_threshold must be within [-1, 1], got %g", c.CitationThreshold)
	}

	if c.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if !validProviders[c.Provider] {
		return fmt.Errorf("invalid provider %q: must be one of anthropic, openai, ollama", c.Provider)
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be within [0, 2], got %g", c.Temperature)
	}

	if !validEmbeddingProviders[c.EmbeddingProvider] {
		return fmt.Errorf("invalid embedding_provider %q: must be one of openai, ollama", c.EmbeddingProvider)
	}
	if c.EmbeddingModel == "" {
		return fmt.Errorf("embedding_model is required")
	}

	if !validVectorStores[c.VectorStore] {
		return fmt.Errorf("invalid vector_store %q: must be one of chromem, pgvector", c.VectorStore)
	}
	if c.VectorStore == VectorStorePGVector && c.PostgresURL == "" {
		return fmt.Errorf("postgres_url is required when vector_store is pgvector")
	}

	if c.OCR.BatchSize <= 0 {
		return fmt.Errorf("ocr.batch_size must be positive")
	}
	if c.OCR.DPI <= 0 {
		return fmt.Errorf("ocr.dpi must be positive")
	}
	if c.OCR.MaxWorkers < 0 {
		return fmt.Errorf("ocr.max_workers must be non-negative")
	}

	if c.RequestsPerMinute < 0 {
		return fmt.Errorf("requests_per_minute must be non-negative")
	}

	return nil
}

// APIKeyEnvVar returns the conventional environment variable name for
// the API key of the given provider.
func APIKeyEnvVar(provider ProviderType) string {
	switch provider {
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	default:
		return ""
	}
}
