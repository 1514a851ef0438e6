// Package ingest prepares the manual index at startup: it opens a persisted
// index, or loads, splits and embeds the PDF folder when none exists.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ziadkadry99/manualqa/internal/documents"
	"github.com/ziadkadry99/manualqa/internal/vectordb"
)

// Loader reads page records from a folder of PDFs.
type Loader interface {
	Load(ctx context.Context, folder string) (*documents.Result, error)
}

// Splitter cuts page records into chunks.
type Splitter interface {
	Split(records []documents.PageRecord) []documents.Chunk
}

// Index is the persisted vector index being prepared.
type Index interface {
	Open(ctx context.Context) error
	Build(ctx context.Context, chunks []documents.Chunk) error
	Count() int
}

// Options controls one ingestion run.
type Options struct {
	DataFolder string
	// LockPath is the index location the build lock is taken for.
	LockPath string
	// Rebuild ignores any persisted index.
	Rebuild bool
}

// Report summarizes an ingestion run.
type Report struct {
	// Reused is true when a persisted index was opened instead of built.
	Reused   bool
	Files    int
	Pages    int
	Chunks   int
	Scanned  []string
	Failed   []documents.FileError
	Duration time.Duration
}

// Pipeline runs document loading, chunking and index building in order.
type Pipeline struct {
	loader   Loader
	splitter Splitter
	index    Index
}

// New creates an ingestion pipeline.
func New(loader Loader, splitter Splitter, index Index) *Pipeline {
	return &Pipeline{loader: loader, splitter: splitter, index: index}
}

// Run opens the persisted index, building it from opts.DataFolder only when
// it is absent or opts.Rebuild is set. Errors are fatal for startup.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Report, error) {
	start := time.Now()

	if opts.LockPath != "" {
		lock, err := vectordb.AcquireLock(opts.LockPath)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := lock.Release(); err != nil {
				log.Printf("ingest: %v", err)
			}
		}()
	}

	if !opts.Rebuild {
		err := p.index.Open(ctx)
		if err == nil {
			log.Printf("ingest: opened existing index with %d chunks", p.index.Count())
			return &Report{Reused: true, Chunks: p.index.Count(), Duration: time.Since(start)}, nil
		}
		if !errors.Is(err, vectordb.ErrIndexNotFound) {
			return nil, fmt.Errorf("opening index: %w", err)
		}
		log.Printf("ingest: no index found, building from %s", opts.DataFolder)
	}

	res, err := p.loader.Load(ctx, opts.DataFolder)
	if err != nil {
		return nil, fmt.Errorf("loading documents: %w", err)
	}

	chunks := p.splitter.Split(res.Records)
	report := &Report{
		Files:   countFiles(res.Records),
		Pages:   len(res.Records),
		Chunks:  len(chunks),
		Scanned: res.Scanned,
		Failed:  res.Failed,
	}
	log.Printf("ingest: %d pages from %d files split into %d chunks", report.Pages, report.Files, report.Chunks)

	// Build failures are *vectordb.IndexBuildError and name their stage.
	if err := p.index.Build(ctx, chunks); err != nil {
		return nil, err
	}
	report.Duration = time.Since(start)
	return report, nil
}

func countFiles(records []documents.PageRecord) int {
	seen := make(map[string]bool)
	for _, r := range records {
		seen[r.Source] = true
	}
	return len(seen)
}
