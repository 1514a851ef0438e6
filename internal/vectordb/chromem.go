package vectordb

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/ziadkadry99/manualqa/internal/documents"
	"github.com/ziadkadry99/manualqa/internal/embeddings"
)

const (
	collectionName = "manuals"
	exportFile     = "chromem.gob.gz"
)

// ChromemStore implements Store with chromem-go, persisted as a single
// compressed export inside dir.
type ChromemStore struct {
	dir       string
	embedFunc chromem.EmbeddingFunc

	mu         sync.RWMutex
	db         *chromem.DB
	collection *chromem.Collection
}

// NewChromemStore creates an empty ChromemStore rooted at dir. Nothing is
// read from disk until Load.
func NewChromemStore(dir string, embedder embeddings.Embedder) (*ChromemStore, error) {
	s := &ChromemStore{
		dir:       dir,
		embedFunc: embeddings.ToChromemFunc(embedder),
	}
	if err := s.reset(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ChromemStore) reset() error {
	db := chromem.NewDB()
	col, err := db.GetOrCreateCollection(collectionName, nil, s.embedFunc)
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	s.mu.Lock()
	s.db, s.collection = db, col
	s.mu.Unlock()
	return nil
}

func (s *ChromemStore) Reset(ctx context.Context) error {
	if err := os.Remove(s.exportPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove previous index: %w", err)
	}
	return s.reset()
}

func (s *ChromemStore) Add(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	docs := make([]chromem.Document, len(entries))
	for i, e := range entries {
		docs[i] = chromem.Document{
			ID:        e.ID,
			Content:   e.Chunk.Text,
			Embedding: e.Embedding,
			Metadata: map[string]string{
				"source": e.Chunk.Source,
				"page":   e.Chunk.Page.String(),
			},
		}
	}

	s.mu.RLock()
	col := s.collection
	s.mu.RUnlock()
	return col.AddDocuments(ctx, docs, runtime.NumCPU())
}

func (s *ChromemStore) Query(ctx context.Context, vec []float32, k int) ([]SearchResult, error) {
	s.mu.RLock()
	col := s.collection
	s.mu.RUnlock()

	// chromem-go requires nResults <= collection size.
	count := col.Count()
	if count == 0 || k <= 0 {
		return nil, nil
	}
	k = min(k, count)

	results, err := col.QueryEmbedding(ctx, vec, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	out := make([]SearchResult, len(results))
	for i, r := range results {
		out[i] = SearchResult{
			Chunk: documents.Chunk{
				Text:   r.Content,
				Source: r.Metadata["source"],
				Page:   documents.ParsePageNumber(r.Metadata["page"]),
			},
			Score: r.Similarity,
		}
	}
	return out, nil
}

func (s *ChromemStore) Persist(ctx context.Context) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	s.mu.RLock()
	db := s.db
	s.mu.RUnlock()
	if err := db.ExportToFile(s.exportPath(), true, ""); err != nil {
		return fmt.Errorf("export index: %w", err)
	}
	return nil
}

func (s *ChromemStore) Load(ctx context.Context) error {
	if _, err := os.Stat(s.exportPath()); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w at %s", ErrIndexNotFound, s.dir)
		}
		return fmt.Errorf("accessing index: %w", err)
	}

	db := chromem.NewDB()
	if err := db.ImportFromFile(s.exportPath(), ""); err != nil {
		return fmt.Errorf("import from file: %w", err)
	}
	col := db.GetCollection(collectionName, s.embedFunc)
	if col == nil || col.Count() == 0 {
		return fmt.Errorf("%w: %s holds no %q entries", ErrIndexNotFound, s.dir, collectionName)
	}

	s.mu.Lock()
	s.db, s.collection = db, col
	s.mu.Unlock()
	return nil
}

func (s *ChromemStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collection.Count()
}

func (s *ChromemStore) Close() error { return nil }

func (s *ChromemStore) exportPath() string {
	return filepath.Join(s.dir, exportFile)
}
