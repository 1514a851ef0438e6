package config

// ProviderType identifies an LLM or embedding provider.
type ProviderType string

const (
	ProviderAnthropic ProviderType = "anthropic"
	ProviderOpenAI    ProviderType = "openai"
	ProviderOllama    ProviderType = "ollama"
)

// VectorStoreType selects the backend holding the persisted index.
type VectorStoreType string

const (
	VectorStoreChromem  VectorStoreType = "chromem"
	VectorStorePGVector VectorStoreType = "pgvector"
)

// Config is the top-level manualqa configuration, corresponding to .manualqa.yml.
// It is built once at startup and treated as read-only afterwards.
type Config struct {
	DataFolder        string          `yaml:"data_folder" koanf:"data_folder"`
	IndexPath         string          `yaml:"index_path" koanf:"index_path"`
	ChunkSize         int             `yaml:"chunk_size" koanf:"chunk_size"`
	ChunkOverlap      int             `yaml:"chunk_overlap" koanf:"chunk_overlap"`
	PromptTemplate    string          `yaml:"prompt_template" koanf:"prompt_template"`
	SimilarityTopK    int             `yaml:"similarity_top_k" koanf:"similarity_top_k"`
	CitationThreshold float64         `yaml:"citation_threshold" koanf:"citation_threshold"`
	Provider          ProviderType    `yaml:"provider" koanf:"provider"`
	Model             string          `yaml:"model" koanf:"model"`
	Temperature       float64         `yaml:"temperature" koanf:"temperature"`
	EmbeddingProvider ProviderType    `yaml:"embedding_provider" koanf:"embedding_provider"`
	EmbeddingModel    string          `yaml:"embedding_model" koanf:"embedding_model"`
	VectorStore       VectorStoreType `yaml:"vector_store" koanf:"vector_store"`
	PostgresURL       string          `yaml:"postgres_url,omitempty" koanf:"postgres_url"`
	RequestsPerMinute int             `yaml:"requests_per_minute" koanf:"requests_per_minute"`
	SessionsDB        string          `yaml:"sessions_db" koanf:"sessions_db"`
	OCR               OCRConfig       `yaml:"ocr" koanf:"ocr"`
	Server            ServerConfig    `yaml:"server" koanf:"server"`
}

// OCRConfig holds settings for the scanned-PDF recognition path.
type OCRConfig struct {
	BatchSize  int    `yaml:"batch_size" koanf:"batch_size"`
	DPI        int    `yaml:"dpi" koanf:"dpi"`
	Language   string `yaml:"language" koanf:"language"`
	MaxWorkers int    `yaml:"max_workers" koanf:"max_workers"`
}

// ServerConfig holds settings for the HTTP surface.
type ServerConfig struct {
	Port            int  `yaml:"port" koanf:"port"`
	AllowAllOrigins bool `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}
