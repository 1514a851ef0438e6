package ocr

import (
	"fmt"

	"github.com/gen2brain/go-fitz"
)

// FitzRasterizer renders pages with MuPDF. Each call opens its own document
// handle, so concurrent batches share nothing.
type FitzRasterizer struct{}

// PageCount opens the PDF and returns its number of pages.
func (FitzRasterizer) PageCount(path string) (int, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()
	return doc.NumPage(), nil
}

// Rasterize renders pages first..last (1-based, inclusive) as PNGs at dpi.
// A range outside the document is an error.
func (FitzRasterizer) Rasterize(path string, first, last, dpi int) ([][]byte, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	if first < 1 || last > doc.NumPage() || first > last {
		return nil, fmt.Errorf("page range %d-%d outside 1-%d", first, last, doc.NumPage())
	}

	images := make([][]byte, 0, last-first+1)
	for page := first; page <= last; page++ {
		png, err := doc.ImagePNG(page-1, float64(dpi))
		if err != nil {
			return nil, fmt.Errorf("render page %d: %w", page, err)
		}
		images = append(images, png)
	}
	return images, nil
}
