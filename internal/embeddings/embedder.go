package embeddings

import (
	"context"
	"fmt"
)

// Embedder defines the interface for generating text embeddings.
// The same Embedder must be used to build an index and to query it.
type Embedder interface {
	// Embed generates one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the number of dimensions in the embedding vectors.
	Dimensions() int

	// Name returns the name/identifier of the embedding model.
	Name() string
}

// EmbedQuery embeds a single query string.
func EmbedQuery(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("%s returned %d embeddings for one query", e.Name(), len(vecs))
	}
	return vecs[0], nil
}
