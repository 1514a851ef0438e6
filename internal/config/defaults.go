package config

// DefaultFile is the config file looked up when --config is not given.
const DefaultFile = ".manualqa.yml"

// DefaultPromptTemplate grounds answers in the retrieved manual sections.
const DefaultPromptTemplate = "You are an AI agent serving as the ship's main technical engineer companion. " +
	"You have access to technical manuals of the ship's machinery and equipment in PDF format. " +
	"Each PDF is focused on a specific topic, and answers should be drawn only from the relevant manual.\n" +
	"If you find information in different pdfs please make sure to not combine information them.\n" +
	"Relevant info might be included in multiple PDF engine manuals.\n" +
	"When answering, include every step and detail exactly as provided in the manuals.\n\n" +
	"Below are the relevant sections from the manuals:\n" +
	"{context}\n\n" +
	"Conversation History:\n" +
	"{chat_history}\n\n" +
	"Question: {question}\n\n" +
	"Please provide your answer."

// ModelPreset pairs a chat model with the embedding model usually run alongside it.
type ModelPreset struct {
	Model          string
	EmbeddingModel string
}

// providerPresets holds the models offered by the init wizard.
var providerPresets = map[ProviderType]ModelPreset{
	ProviderOpenAI:    {Model: "gpt-4o-mini", EmbeddingModel: "text-embedding-3-small"},
	ProviderAnthropic: {Model: "claude-haiku-4-5-20251001", EmbeddingModel: "text-embedding-3-small"},
	ProviderOllama:    {Model: "llama3", EmbeddingModel: "nomic-embed-text"},
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DataFolder:        "./data",
		IndexPath:         "./index",
		ChunkSize:         1000,
		ChunkOverlap:      200,
		PromptTemplate:    DefaultPromptTemplate,
		SimilarityTopK:    3,
		CitationThreshold: 0.8,
		Provider:          ProviderOpenAI,
		Model:             "gpt-4o-mini",
		Temperature:       0.2,
		EmbeddingProvider: ProviderOpenAI,
		EmbeddingModel:    "text-embedding-3-small",
		VectorStore:       VectorStoreChromem,
		SessionsDB:        ".manualqa/sessions.db",
		OCR: OCRConfig{
			BatchSize: 10,
			DPI:       200,
			Language:  "eng",
		},
		Server: ServerConfig{
			Port: 8080,
		},
	}
}

// GetPreset returns the model preset for the given provider,
// falling back to the OpenAI preset.
func GetPreset(provider ProviderType) ModelPreset {
	if p, ok := providerPresets[provider]; ok {
		return p
	}
	return providerPresets[ProviderOpenAI]
}
