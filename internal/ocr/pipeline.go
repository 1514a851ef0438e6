// Package ocr recovers page text from scanned PDFs by rasterizing pages and
// running text recognition over them in parallel batches.
package ocr

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"runtime"

	"github.com/ziadkadry99/manualqa/internal/documents"
)

const (
	// DefaultBatchSize is the number of pages rasterized and recognized per task.
	DefaultBatchSize = 10
	// DefaultDPI is the rendering resolution used when Options.DPI is zero.
	DefaultDPI = 200
)

// Rasterizer renders PDF pages to encoded images.
type Rasterizer interface {
	// PageCount returns the number of pages in the document.
	PageCount(path string) (int, error)
	// Rasterize renders pages first..last (1-based, inclusive) at dpi and
	// returns one image per page in page order.
	Rasterize(path string, first, last, dpi int) ([][]byte, error)
}

// Recognizer extracts text from a single page image.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// ProgressFunc is called after each batch completes, successfully or not.
type ProgressFunc func(done, total int, message string)

// Options tunes a Pipeline. Zero values select the defaults.
type Options struct {
	BatchSize  int
	DPI        int
	MaxWorkers int
	OnProgress ProgressFunc
}

// Pipeline runs OCR over scanned PDFs.
type Pipeline struct {
	raster     Rasterizer
	recognizer Recognizer
	batchSize  int
	dpi        int
	maxWorkers int
	onProgress ProgressFunc
}

// NewPipeline creates a Pipeline from a rasterizer and a recognizer.
func NewPipeline(raster Rasterizer, recognizer Recognizer, opts Options) *Pipeline {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.DPI <= 0 {
		opts.DPI = DefaultDPI
	}
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = runtime.GOMAXPROCS(0)
	}
	return &Pipeline{
		raster:     raster,
		recognizer: recognizer,
		batchSize:  opts.BatchSize,
		dpi:        opts.DPI,
		maxWorkers: opts.MaxWorkers,
		onProgress: opts.OnProgress,
	}
}

// batch is an inclusive, 1-based page range.
type batch struct {
	first, last int
}

type batchResult struct {
	batch batch
	pages []documents.PageRecord
	err   error
}

// partition splits pages 1..n into consecutive ranges of at most size pages.
func partition(n, size int) []batch {
	var out []batch
	for first := 1; first <= n; first += size {
		last := first + size - 1
		if last > n {
			last = n
		}
		out = append(out, batch{first: first, last: last})
	}
	return out
}

// Recognize returns one record per recognized page of the PDF at path.
// It never fails: an unreadable page count yields no records, a batch that
// cannot be rasterized contributes none of its pages, and a page whose
// recognition fails is kept with empty text. Records come back in batch
// completion order, not page order.
func (p *Pipeline) Recognize(ctx context.Context, path string) []documents.PageRecord {
	name := filepath.Base(path)

	n, err := p.raster.PageCount(path)
	if err != nil {
		log.Printf("ocr: getting page count from %s: %v", name, err)
		return nil
	}
	batches := partition(n, p.batchSize)
	if len(batches) == 0 {
		return nil
	}

	workers := p.maxWorkers
	if len(batches) < workers {
		workers = len(batches)
	}

	jobs := make(chan batch)
	results := make(chan batchResult, len(batches))

	for w := 0; w < workers; w++ {
		go func() {
			for b := range jobs {
				results <- p.runBatch(ctx, path, name, b)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, b := range batches {
			jobs <- b
		}
	}()

	var records []documents.PageRecord
	for done := 1; done <= len(batches); done++ {
		r := <-results
		if r.err != nil {
			log.Printf("ocr: pages %d-%d of %s: %v", r.batch.first, r.batch.last, name, r.err)
		} else {
			records = append(records, r.pages...)
		}
		if p.onProgress != nil {
			p.onProgress(done, len(batches), fmt.Sprintf("%s pages %d-%d", name, r.batch.first, r.batch.last))
		}
	}
	return records
}

// runBatch rasterizes and recognizes one page range. Only a rasterization
// failure fails the whole batch.
func (p *Pipeline) runBatch(ctx context.Context, path, name string, b batch) batchResult {
	if err := ctx.Err(); err != nil {
		return batchResult{batch: b, err: err}
	}

	images, err := p.raster.Rasterize(path, b.first, b.last, p.dpi)
	if err != nil {
		return batchResult{batch: b, err: fmt.Errorf("rasterize: %w", err)}
	}
	if want := b.last - b.first + 1; len(images) != want {
		return batchResult{batch: b, err: fmt.Errorf("rasterize: got %d images for %d pages", len(images), want)}
	}

	pages := make([]documents.PageRecord, len(images))
	for i, img := range images {
		page := b.first + i
		text, err := p.recognizer.Recognize(ctx, img)
		if err != nil {
			log.Printf("ocr: recognizing page %d of %s: %v", page, name, err)
			text = ""
		}
		pages[i] = documents.PageRecord{
			Source: name,
			Page:   documents.PageNumber(page),
			Text:   text,
		}
	}
	return batchResult{batch: b, pages: pages}
}
