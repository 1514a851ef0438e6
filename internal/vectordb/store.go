package vectordb

import (
	"context"
	"errors"

	"github.com/ziadkadry99/manualqa/internal/documents"
)

var (
	// ErrIndexNotFound means the persistence location is absent or empty.
	// Callers fall back to Build.
	ErrIndexNotFound = errors.New("index not found")

	// ErrIndexNotInitialized means no index is loaded and none could be opened.
	ErrIndexNotInitialized = errors.New("index not initialized")
)

// IndexBuildError reports a failed build. The previous index, if any, may
// already have been discarded.
type IndexBuildError struct {
	Stage string
	Err   error
}

func (e *IndexBuildError) Error() string {
	return "building index: " + e.Stage + ": " + e.Err.Error()
}

func (e *IndexBuildError) Unwrap() error { return e.Err }

// Entry is an indexed chunk: its text, attribution and embedding.
// Entries are never mutated after insertion.
type Entry struct {
	ID        string
	Chunk     documents.Chunk
	Embedding []float32
}

// SearchResult pairs a chunk with its cosine similarity to the query.
// Higher is more relevant.
type SearchResult struct {
	Chunk documents.Chunk
	Score float32
}

// Store persists entries and answers nearest-neighbour queries.
type Store interface {
	// Reset discards every entry, in memory and on durable storage.
	Reset(ctx context.Context) error

	// Add inserts entries with precomputed embeddings.
	Add(ctx context.Context, entries []Entry) error

	// Query returns up to k entries closest to vec, most similar first.
	Query(ctx context.Context, vec []float32, k int) ([]SearchResult, error)

	// Persist flushes the current entries to durable storage.
	Persist(ctx context.Context) error

	// Load restores entries from durable storage, returning ErrIndexNotFound
	// when there is nothing to restore.
	Load(ctx context.Context) error

	// Count returns the number of entries currently held.
	Count() int

	Close() error
}
