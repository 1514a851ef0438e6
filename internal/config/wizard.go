package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"

	"github.com/ziadkadry99/manualqa/internal/documents"
)

// countPDFs returns how many manuals ingest would load from dir.
func countPDFs(dir string) int {
	files, err := documents.ListPDFs(dir)
	if err != nil {
		return 0
	}
	return len(files)
}

// RunWizard runs an interactive configuration wizard, saves the result to
// path and returns it.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to manualqa! Let's point it at your manuals.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Data folder.
	dataPrompt := promptui.Prompt{
		Label:   "Folder containing the PDF manuals",
		Default: cfg.DataFolder,
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return fmt.Errorf("folder is required")
			}
			return nil
		},
	}
	dataFolder, err := dataPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("data folder: %w", err)
	}
	cfg.DataFolder = strings.TrimSpace(dataFolder)
	if n := countPDFs(cfg.DataFolder); n > 0 {
		fmt.Printf("Found %d PDF file(s) in %s\n\n", n, cfg.DataFolder)
	} else {
		fmt.Printf("No PDF files in %s yet; add some before running manualqa ingest.\n\n", cfg.DataFolder)
	}

	// 2. Provider selection.
	providerPrompt := promptui.Select{
		Label: "Select LLM provider",
		Items: []string{"openai", "anthropic", "ollama"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.Provider = ProviderType(providerStr)
	preset := GetPreset(cfg.Provider)
	cfg.Model = preset.Model
	cfg.EmbeddingProvider = embeddingProviderFor(cfg.Provider)
	cfg.EmbeddingModel = GetPreset(cfg.EmbeddingProvider).EmbeddingModel

	// 3. Vector store.
	storePrompt := promptui.Select{
		Label: "Where should the index live",
		Items: []string{
			"chromem  - local files under the index path",
			"pgvector - PostgreSQL with the vector extension",
		},
	}
	storeIdx, _, err := storePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("vector store selection: %w", err)
	}
	if storeIdx == 1 {
		cfg.VectorStore = VectorStorePGVector
		pgPrompt := promptui.Prompt{
			Label:   "PostgreSQL connection URL",
			Default: "postgres://localhost:5432/manualqa",
		}
		url, err := pgPrompt.Run()
		if err != nil {
			return nil, fmt.Errorf("postgres url: %w", err)
		}
		cfg.PostgresURL = url
	} else {
		indexPrompt := promptui.Prompt{
			Label:   "Index directory",
			Default: cfg.IndexPath,
		}
		indexPath, err := indexPrompt.Run()
		if err != nil {
			return nil, fmt.Errorf("index path: %w", err)
		}
		cfg.IndexPath = indexPath
	}

	// 4. Retrieval width.
	topKPrompt := promptui.Prompt{
		Label:   "Chunks retrieved per question",
		Default: strconv.Itoa(cfg.SimilarityTopK),
		Validate: func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil || n < 1 {
				return fmt.Errorf("enter a positive number")
			}
			return nil
		},
	}
	topK, err := topKPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("top-k: %w", err)
	}
	cfg.SimilarityTopK, _ = strconv.Atoi(topK)

	for _, p := range []ProviderType{cfg.Provider, cfg.EmbeddingProvider} {
		if envVar := APIKeyEnvVar(p); envVar != "" && os.Getenv(envVar) == "" {
			fmt.Printf("\nNote: Set %s in your environment or a .env file before running manualqa.\n", envVar)
			break
		}
	}

	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

// embeddingProviderFor returns the default embedding provider for a given
// LLM provider. Anthropic has no embeddings API, so it pairs with OpenAI.
func embeddingProviderFor(p ProviderType) ProviderType {
	if p == ProviderOllama {
		return ProviderOllama
	}
	return ProviderOpenAI
}
