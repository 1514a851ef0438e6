package vectordb

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ziadkadry99/manualqa/internal/documents"
)

// mockEmbedder returns deterministic embeddings based on text content.
// It produces a simple hash-based vector for reproducible tests.
type mockEmbedder struct {
	dims int
	err  error
}

func newMockEmbedder(dims int) *mockEmbedder {
	return &mockEmbedder{dims: dims}
}

func (m *mockEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	results := make([][]float32, len(texts))
	for i, text := range texts {
		results[i] = m.deterministicVector(text)
	}
	return results, nil
}

func (m *mockEmbedder) Dimensions() int { return m.dims }
func (m *mockEmbedder) Name() string    { return "mock" }

// deterministicVector produces a normalized vector from text.
// Similar texts will produce similar vectors because shared characters contribute
// to the same positions in the vector.
func (m *mockEmbedder) deterministicVector(text string) []float32 {
	vec := make([]float32, m.dims)
	for i, ch := range text {
		idx := (int(ch) + i) % m.dims
		vec[idx] += 1.0
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec
}

var manualChunks = []documents.Chunk{
	{Text: "To bleed the fuel system open the vent screw on the filter housing", Source: "engine.pdf", Page: 12},
	{Text: "The bilge pump float switch must be tested monthly", Source: "bilge.pdf", Page: 3},
	{Text: "Replace the raw water impeller every 500 running hours", Source: "engine.pdf", Page: 40},
	{Text: "Battery isolator wiring diagram for the house bank", Source: "electrical.pdf", Page: 7},
}

func newTestIndex(t *testing.T, dir string) *Index {
	t.Helper()
	emb := newMockEmbedder(64)
	store, err := NewChromemStore(dir, emb)
	if err != nil {
		t.Fatalf("NewChromemStore: %v", err)
	}
	return NewIndex(store, emb)
}

func TestIndexBuildAndSearch(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t, t.TempDir())

	if err := idx.Build(ctx, manualChunks); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if idx.Count() != len(manualChunks) {
		t.Errorf("Count: got %d, want %d", idx.Count(), len(manualChunks))
	}

	results, err := idx.SimilaritySearch(ctx, manualChunks[2].Text, 2)
	if err != nil {
		t.Fatalf("SimilaritySearch: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	top := results[0]
	if top.Chunk.Source != "engine.pdf" || top.Chunk.Page != 40 {
		t.Errorf("expected engine.pdf page 40 first, got %s page %s", top.Chunk.Source, top.Chunk.Page)
	}
	if top.Score < 0.99 {
		t.Errorf("exact match should score ~1, got %f", top.Score)
	}
	if results[1].Score > top.Score {
		t.Errorf("results not ordered by score: %f > %f", results[1].Score, top.Score)
	}
}

func TestIndexSearchClampsK(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t, t.TempDir())
	if err := idx.Build(ctx, manualChunks[:2]); err != nil {
		t.Fatalf("Build: %v", err)
	}

	results, err := idx.SimilaritySearch(ctx, "pump", 10)
	if err != nil {
		t.Fatalf("SimilaritySearch: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}
}

func TestIndexPersistAndOpen(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "index")

	built := newTestIndex(t, dir)
	if err := built.Build(ctx, manualChunks); err != nil {
		t.Fatalf("Build: %v", err)
	}
	query := "how often should the impeller be replaced"
	before, err := built.SimilaritySearch(ctx, query, 3)
	if err != nil {
		t.Fatalf("SimilaritySearch: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, exportFile)); err != nil {
		t.Fatalf("expected export file: %v", err)
	}

	reopened := newTestIndex(t, dir)
	if err := reopened.Open(ctx); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if reopened.Count() != len(manualChunks) {
		t.Errorf("Count after open: got %d, want %d", reopened.Count(), len(manualChunks))
	}

	after, err := reopened.SimilaritySearch(ctx, query, 3)
	if err != nil {
		t.Fatalf("SimilaritySearch after open: %v", err)
	}
	if len(after) != len(before) {
		t.Fatalf("result count changed across reload: %d vs %d", len(before), len(after))
	}
	for i := range before {
		if before[i].Chunk != after[i].Chunk {
			t.Errorf("result %d changed: %+v vs %+v", i, before[i].Chunk, after[i].Chunk)
		}
		if math.Abs(float64(before[i].Score-after[i].Score)) > 1e-5 {
			t.Errorf("score %d changed: %f vs %f", i, before[i].Score, after[i].Score)
		}
	}
}

func TestIndexBuildOverwrites(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	idx := newTestIndex(t, dir)
	if err := idx.Build(ctx, manualChunks); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if err := idx.Build(ctx, manualChunks[:1]); err != nil {
		t.Fatalf("rebuild: %v", err)
	}

	reopened := newTestIndex(t, dir)
	if err := reopened.Open(ctx); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if reopened.Count() != 1 {
		t.Errorf("expected rebuilt index to hold 1 chunk, got %d", reopened.Count())
	}
}

func TestIndexOpenMissing(t *testing.T) {
	ctx := context.Background()

	for name, dir := range map[string]string{
		"absent": filepath.Join(t.TempDir(), "does-not-exist"),
		"empty":  t.TempDir(),
	} {
		t.Run(name, func(t *testing.T) {
			idx := newTestIndex(t, dir)
			if err := idx.Open(ctx); !errors.Is(err, ErrIndexNotFound) {
				t.Fatalf("expected ErrIndexNotFound, got %v", err)
			}
			if idx.Loaded() {
				t.Error("index should not be loaded")
			}
		})
	}
}

func TestIndexBuildErrors(t *testing.T) {
	ctx := context.Background()

	idx := newTestIndex(t, t.TempDir())
	err := idx.Build(ctx, nil)
	var buildErr *IndexBuildError
	if !errors.As(err, &buildErr) {
		t.Fatalf("expected IndexBuildError for empty corpus, got %v", err)
	}

	emb := newMockEmbedder(64)
	emb.err = errors.New("401 invalid api key")
	store, err := NewChromemStore(t.TempDir(), emb)
	if err != nil {
		t.Fatal(err)
	}
	failing := NewIndex(store, emb)
	err = failing.Build(ctx, manualChunks)
	if !errors.As(err, &buildErr) || buildErr.Stage != "embed" {
		t.Fatalf("expected embed-stage IndexBuildError, got %v", err)
	}
	if !strings.Contains(err.Error(), "invalid api key") {
		t.Errorf("build error should carry the cause: %v", err)
	}
}

func TestRetrieverOpensOnDemand(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	if _, err := newTestIndex(t, dir).Retriever(ctx); !errors.Is(err, ErrIndexNotInitialized) {
		t.Fatalf("expected ErrIndexNotInitialized, got %v", err)
	}

	if err := newTestIndex(t, dir).Build(ctx, manualChunks); err != nil {
		t.Fatalf("Build: %v", err)
	}

	fresh := newTestIndex(t, dir)
	r, err := fresh.Retriever(ctx)
	if err != nil {
		t.Fatalf("Retriever: %v", err)
	}
	results, err := r.Retrieve(ctx, manualChunks[1].Text, 1)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(results) != 1 || results[0].Chunk.Source != "bilge.pdf" {
		t.Errorf("unexpected retrieval %+v", results)
	}
}

func TestSimilaritySearchBeforeLoad(t *testing.T) {
	idx := newTestIndex(t, t.TempDir())
	if _, err := idx.SimilaritySearch(context.Background(), "anything", 3); !errors.Is(err, ErrIndexNotInitialized) {
		t.Fatalf("expected ErrIndexNotInitialized, got %v", err)
	}
}

func TestUnknownPageSurvivesRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	chunk := documents.Chunk{Text: "orphan", Source: documents.UnknownSource, Page: documents.UnknownPage}

	if err := newTestIndex(t, dir).Build(ctx, []documents.Chunk{chunk}); err != nil {
		t.Fatalf("Build: %v", err)
	}
	idx := newTestIndex(t, dir)
	if err := idx.Open(ctx); err != nil {
		t.Fatalf("Open: %v", err)
	}
	results, err := idx.SimilaritySearch(ctx, "orphan", 1)
	if err != nil || len(results) != 1 {
		t.Fatalf("search: %v %v", results, err)
	}
	if results[0].Chunk != chunk {
		t.Errorf("got %+v, want %+v", results[0].Chunk, chunk)
	}
}

func TestChunkIDStable(t *testing.T) {
	c := manualChunks[0]
	if chunkID(c, 0) != chunkID(c, 0) {
		t.Error("chunkID is not deterministic")
	}
	if chunkID(c, 0) == chunkID(c, 1) {
		t.Error("chunkID should differ by ordinal")
	}
}

func TestAcquireLock(t *testing.T) {
	location := filepath.Join(t.TempDir(), "index")

	lock, err := AcquireLock(location)
	if err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}
	if _, err := AcquireLock(location); !errors.Is(err, ErrIndexLocked) {
		t.Fatalf("expected ErrIndexLocked, got %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	again, err := AcquireLock(location)
	if err != nil {
		t.Fatalf("AcquireLock after release: %v", err)
	}
	_ = again.Release()
}

func TestFormatResults(t *testing.T) {
	if got := FormatResults(nil); got != "No results found." {
		t.Errorf("unexpected empty output %q", got)
	}
	out := FormatResults([]SearchResult{{Chunk: manualChunks[1], Score: 0.91}})
	for _, want := range []string{"Found 1 result(s)", "0.9100", "bilge.pdf, page 3", "float switch"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
