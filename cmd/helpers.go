package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ziadkadry99/manualqa/internal/chat"
	"github.com/ziadkadry99/manualqa/internal/chunker"
	"github.com/ziadkadry99/manualqa/internal/config"
	"github.com/ziadkadry99/manualqa/internal/db"
	"github.com/ziadkadry99/manualqa/internal/documents"
	"github.com/ziadkadry99/manualqa/internal/embeddings"
	"github.com/ziadkadry99/manualqa/internal/ingest"
	"github.com/ziadkadry99/manualqa/internal/llm"
	"github.com/ziadkadry99/manualqa/internal/ocr"
	"github.com/ziadkadry99/manualqa/internal/progress"
	"github.com/ziadkadry99/manualqa/internal/vectordb"
)

// ollamaEmbeddingDims is the output size of nomic-embed-text.
const ollamaEmbeddingDims = 768

// app bundles everything a command needs after startup.
type app struct {
	cfg   *config.Config
	creds config.Credentials
	index *vectordb.Index
}

func (a *app) Close() {
	if a.index != nil {
		a.index.Close()
	}
}

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `manualqa init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// startup loads config, resolves credentials and opens the index store.
// Missing credentials abort here, before any document is read.
func startup(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	creds, err := cfg.ResolveCredentials()
	if err != nil {
		return nil, err
	}

	embedder, err := createEmbedderFromConfig(cfg, creds)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	store, err := createStore(ctx, cfg, embedder)
	if err != nil {
		return nil, fmt.Errorf("creating vector store: %w", err)
	}
	return &app{cfg: cfg, creds: creds, index: vectordb.NewIndex(store, embedder)}, nil
}

// prepareIndex opens the persisted index or builds it from the data folder.
func (a *app) prepareIndex(ctx context.Context, rebuild bool) (*ingest.Report, error) {
	splitter, err := chunker.New(a.cfg.ChunkSize, a.cfg.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	pipeline := ingest.New(newLoader(a.cfg), splitter, a.index)
	return pipeline.Run(ctx, ingest.Options{
		DataFolder: a.cfg.DataFolder,
		LockPath:   a.cfg.IndexPath,
		Rebuild:    rebuild,
	})
}

// newEngine wires the conversation engine to the index.
func (a *app) newEngine(ctx context.Context) (*chat.Engine, error) {
	provider, err := createLLMProviderFromConfig(a.cfg, a.creds)
	if err != nil {
		return nil, fmt.Errorf("creating LLM provider: %w", err)
	}
	tmpl, err := chat.NewTemplate(a.cfg.PromptTemplate)
	if err != nil {
		return nil, err
	}
	retriever, err := a.index.Retriever(ctx)
	if err != nil {
		return nil, err
	}
	return chat.NewEngine(retriever, a.index, provider, tmpl, chat.Options{
		TopK:              a.cfg.SimilarityTopK,
		CitationThreshold: float32(a.cfg.CitationThreshold),
		Temperature:       a.cfg.Temperature,
	}), nil
}

// openSessions opens the session database. The returned close func is never nil.
func (a *app) openSessions() (*chat.Manager, func(), error) {
	if a.cfg.SessionsDB == "" {
		return chat.NewManager(nil), func() {}, nil
	}
	database, err := db.Open(a.cfg.SessionsDB)
	if err != nil {
		return nil, nil, fmt.Errorf("opening session database: %w", err)
	}
	return chat.NewManager(chat.NewSessionStore(database)), func() { database.Close() }, nil
}

// newLoader builds the PDF loader with the OCR fallback for scanned files.
func newLoader(cfg *config.Config) *documents.Loader {
	scanner := ocr.NewPipeline(ocr.FitzRasterizer{}, ocr.TesseractRecognizer{Language: cfg.OCR.Language}, ocr.Options{
		BatchSize:  cfg.OCR.BatchSize,
		DPI:        cfg.OCR.DPI,
		MaxWorkers: cfg.OCR.MaxWorkers,
		OnProgress: func(done, total int, message string) {
			fmt.Fprintf(os.Stderr, "  OCR %s: batch %d/%d\n", message, done, total)
		},
	})
	return documents.NewLoader(documents.FitzExtractor{}, scanner, progress.NewReporter("Loading manuals"))
}

// createEmbedderFromConfig creates an embeddings.Embedder based on config.
func createEmbedderFromConfig(cfg *config.Config, creds config.Credentials) (embeddings.Embedder, error) {
	model := cfg.EmbeddingModel
	if model == "" {
		model = config.GetPreset(cfg.EmbeddingProvider).EmbeddingModel
	}

	switch cfg.EmbeddingProvider {
	case config.ProviderOpenAI:
		return embeddings.NewOpenAIEmbedder(creds.OpenAIKey, model, ""), nil
	case config.ProviderOllama:
		return embeddings.NewOllamaEmbedder(model, ollamaEmbeddingDims, creds.OllamaHost), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.EmbeddingProvider)
	}
}

// createLLMProviderFromConfig creates an LLM provider based on config settings.
func createLLMProviderFromConfig(cfg *config.Config, creds config.Credentials) (llm.Provider, error) {
	opts := llm.Options{
		Type:              string(cfg.Provider),
		Model:             cfg.Model,
		APIKey:            creds.APIKey(cfg.Provider),
		RequestsPerMinute: cfg.RequestsPerMinute,
	}
	if cfg.Provider == config.ProviderOllama {
		opts.BaseURL = creds.OllamaHost
	}
	return llm.NewProvider(opts)
}

// createStore opens the configured vector store backend.
func createStore(ctx context.Context, cfg *config.Config, embedder embeddings.Embedder) (vectordb.Store, error) {
	switch cfg.VectorStore {
	case config.VectorStorePGVector:
		return vectordb.NewPGVectorStore(ctx, cfg.PostgresURL, embedder.Dimensions())
	case config.VectorStoreChromem, "":
		return vectordb.NewChromemStore(cfg.IndexPath, embedder)
	default:
		return nil, fmt.Errorf("unsupported vector store: %s", cfg.VectorStore)
	}
}

// describeStartupError adds a next step to errors that abort startup.
func describeStartupError(err error) error {
	switch {
	case errors.Is(err, config.ErrMissingCredentials):
		return fmt.Errorf("%w\nAdd the key to your environment or to %s", err, envFile)
	case errors.Is(err, documents.ErrNoDocumentsFound):
		return fmt.Errorf("%w\nPut your PDF manuals in the data folder or change data_folder in %s", err, cfgFile)
	case errors.Is(err, vectordb.ErrIndexLocked):
		return fmt.Errorf("%w\nWait for the other ingestion to finish", err)
	default:
		return err
	}
}

func printReport(report *ingest.Report) {
	if report.Reused {
		fmt.Fprintf(os.Stderr, "Using existing index (%d chunks). Run `manualqa ingest --rebuild` after changing the manuals.\n", report.Chunks)
		return
	}
	fmt.Fprintf(os.Stderr, "Indexed %d pages from %d manuals into %d chunks in %s\n",
		report.Pages, report.Files, report.Chunks, report.Duration.Round(100*time.Millisecond))
	if len(report.Scanned) > 0 {
		fmt.Fprintf(os.Stderr, "  OCR used for: %v\n", report.Scanned)
	}
	for _, f := range report.Failed {
		fmt.Fprintf(os.Stderr, "  Skipped %s: %v\n", f.File, f.Err)
	}
}
