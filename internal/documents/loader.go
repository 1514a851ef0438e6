package documents

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/ziadkadry99/manualqa/internal/progress"
)

// ErrNoDocumentsFound is returned when the data folder holds no PDF files.
// Callers treat it as fatal for startup.
var ErrNoDocumentsFound = errors.New("no PDF documents found")

// pdfPattern is matched against lower-cased file names.
const pdfPattern = "*.pdf"

// Scanner produces page records for PDFs that have no text layer.
type Scanner interface {
	Recognize(ctx context.Context, path string) []PageRecord
}

// FileError records a PDF that could not be read.
type FileError struct {
	File string
	Err  error
}

// Result is the outcome of loading a folder.
type Result struct {
	Records []PageRecord
	// Scanned lists files that were routed through OCR.
	Scanned []string
	// Failed lists files skipped because they could not be opened.
	Failed []FileError
}

// Loader turns a folder of PDFs into page records.
type Loader struct {
	extractor Extractor
	scanner   Scanner
	reporter  progress.Reporter
}

// NewLoader creates a Loader. A nil reporter disables progress output.
func NewLoader(extractor Extractor, scanner Scanner, reporter progress.Reporter) *Loader {
	if reporter == nil {
		reporter = progress.Nop{}
	}
	return &Loader{extractor: extractor, scanner: scanner, reporter: reporter}
}

// Load reads every PDF directly inside folder. Files are processed in name
// order; a file that fails to open is logged and skipped. A document whose
// pages are all blank is handed to the Scanner. ErrNoDocumentsFound is
// returned when the folder holds no PDFs or none of them yields a page.
func (l *Loader) Load(ctx context.Context, folder string) (*Result, error) {
	files, err := ListPDFs(folder)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoDocumentsFound, folder)
	}

	res := &Result{}
	l.reporter.Start(len(files))
	defer l.reporter.Finish()

	for i, name := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		l.reporter.Update(i+1, name)

		path := filepath.Join(folder, name)
		pages, err := l.extractor.PageTexts(path)
		if err != nil {
			log.Printf("documents: skipping %s: %v", name, err)
			res.Failed = append(res.Failed, FileError{File: name, Err: err})
			continue
		}

		if isBlank(pages) {
			if l.scanner == nil {
				log.Printf("documents: %s has no text layer and OCR is disabled", name)
				continue
			}
			log.Printf("documents: no text extracted from %s, running OCR", name)
			res.Scanned = append(res.Scanned, name)
			res.Records = append(res.Records, l.scanner.Recognize(ctx, path)...)
			continue
		}

		for p, text := range pages {
			res.Records = append(res.Records, PageRecord{
				Source: name,
				Page:   PageNumber(p + 1),
				Text:   text,
			})
		}
	}

	if len(res.Records) == 0 {
		if len(res.Failed) > 0 {
			first := res.Failed[0]
			return nil, fmt.Errorf("%w: none of the %d PDFs in %s could be read (%s: %v)",
				ErrNoDocumentsFound, len(files), folder, first.File, first.Err)
		}
		return nil, fmt.Errorf("%w: the %d PDFs in %s have no pages", ErrNoDocumentsFound, len(files), folder)
	}
	return res, nil
}

// ListPDFs returns the sorted names of PDF files directly inside folder,
// matching the extension case-insensitively. A missing folder is reported as
// ErrNoDocumentsFound.
func ListPDFs(folder string) ([]string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: folder %s does not exist", ErrNoDocumentsFound, folder)
		}
		return nil, fmt.Errorf("reading data folder: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ok, err := doublestar.Match(pdfPattern, strings.ToLower(e.Name()))
		if err != nil {
			return nil, fmt.Errorf("matching %s: %w", e.Name(), err)
		}
		if ok {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// isBlank reports whether no page carries any non-whitespace text.
// A document with zero pages counts as blank.
func isBlank(pages []string) bool {
	for _, p := range pages {
		if strings.TrimSpace(p) != "" {
			return false
		}
	}
	return true
}
