package documents

import (
	"fmt"

	"github.com/gen2brain/go-fitz"
)

// Extractor returns the embedded text of every page of a PDF, in page order.
type Extractor interface {
	PageTexts(path string) ([]string, error)
}

// FitzExtractor extracts page text with MuPDF through go-fitz.
type FitzExtractor struct{}

// PageTexts opens the file and reads each page's text layer. A page whose
// text cannot be read contributes an empty string so page numbering holds.
func (FitzExtractor) PageTexts(path string) ([]string, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	pages := make([]string, doc.NumPage())
	for i := range pages {
		text, err := doc.Text(i)
		if err != nil {
			continue
		}
		pages[i] = text
	}
	return pages, nil
}
