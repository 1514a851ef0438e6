package vectordb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/ziadkadry99/manualqa/internal/documents"
	"github.com/ziadkadry99/manualqa/internal/embeddings"
)

// chunkNamespace seeds deterministic chunk IDs.
var chunkNamespace = uuid.MustParse("0b6d3f56-9f5e-4c1e-8a0e-6f1d2c8b7a41")

var errEmptyCorpus = errors.New("no chunks to index")

// Index embeds chunks into a Store and serves similarity searches over it.
// Build and Open must not run concurrently against the same location; see
// AcquireLock. Searches are safe for concurrent use.
type Index struct {
	store    Store
	embedder embeddings.Embedder

	mu     sync.RWMutex
	loaded bool
}

// NewIndex wraps store. The embedder must be the one used for every build
// and query of this store.
func NewIndex(store Store, embedder embeddings.Embedder) *Index {
	return &Index{store: store, embedder: embedder}
}

// Build embeds every chunk and replaces whatever the store held before.
// Failures are reported as *IndexBuildError.
func (idx *Index) Build(ctx context.Context, chunks []documents.Chunk) error {
	if len(chunks) == 0 {
		return &IndexBuildError{Stage: "corpus", Err: errEmptyCorpus}
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vecs, err := idx.embedder.Embed(ctx, texts)
	if err != nil {
		return &IndexBuildError{Stage: "embed", Err: err}
	}
	if len(vecs) != len(chunks) {
		return &IndexBuildError{Stage: "embed", Err: fmt.Errorf("%s returned %d vectors for %d chunks", idx.embedder.Name(), len(vecs), len(chunks))}
	}

	entries := make([]Entry, len(chunks))
	for i, c := range chunks {
		entries[i] = Entry{ID: chunkID(c, i), Chunk: c, Embedding: vecs[i]}
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.loaded = false

	if err := idx.store.Reset(ctx); err != nil {
		return &IndexBuildError{Stage: "reset", Err: err}
	}
	if err := idx.store.Add(ctx, entries); err != nil {
		return &IndexBuildError{Stage: "store", Err: err}
	}
	if err := idx.store.Persist(ctx); err != nil {
		return &IndexBuildError{Stage: "persist", Err: err}
	}
	idx.loaded = true
	return nil
}

// Open loads a previously built index. It returns an error wrapping
// ErrIndexNotFound when there is nothing to load.
func (idx *Index) Open(ctx context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := idx.store.Load(ctx); err != nil {
		return err
	}
	idx.loaded = true
	return nil
}

// Loaded reports whether a built or opened index is available.
func (idx *Index) Loaded() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.loaded
}

// Count returns the number of indexed chunks.
func (idx *Index) Count() int {
	return idx.store.Count()
}

// Retriever returns a search handle, opening the index first if needed.
// It fails with ErrIndexNotInitialized when nothing can be opened.
func (idx *Index) Retriever(ctx context.Context) (*Retriever, error) {
	if !idx.Loaded() {
		if err := idx.Open(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIndexNotInitialized, err)
		}
	}
	return &Retriever{index: idx}, nil
}

// SimilaritySearch returns up to k chunks nearest to query, most relevant first.
func (idx *Index) SimilaritySearch(ctx context.Context, query string, k int) ([]SearchResult, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if !idx.loaded {
		return nil, ErrIndexNotInitialized
	}

	vec, err := embeddings.EmbedQuery(ctx, idx.embedder, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	return idx.store.Query(ctx, vec, k)
}

// Close releases the underlying store.
func (idx *Index) Close() error {
	return idx.store.Close()
}

// Retriever is a handle for nearest-neighbour lookups on a loaded Index.
type Retriever struct {
	index *Index
}

// Retrieve returns the k chunks most relevant to question.
func (r *Retriever) Retrieve(ctx context.Context, question string, k int) ([]SearchResult, error) {
	return r.index.SimilaritySearch(ctx, question, k)
}

// chunkID is stable for a given corpus so rebuilds produce the same IDs.
func chunkID(c documents.Chunk, ordinal int) string {
	key := c.Source + "\x00" + c.Page.String() + "\x00" + strconv.Itoa(ordinal)
	return uuid.NewSHA1(chunkNamespace, []byte(key)).String()
}
