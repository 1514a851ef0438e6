package ocr

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// TesseractRecognizer runs Tesseract through gosseract. A fresh client is
// created per page because gosseract clients are not safe for concurrent use.
type TesseractRecognizer struct {
	Language string
}

// Recognize returns the text Tesseract reads from one page image, using
// Language when set and Tesseract's default otherwise.
func (r TesseractRecognizer) Recognize(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if r.Language != "" {
		if err := client.SetLanguage(r.Language); err != nil {
			return "", fmt.Errorf("set language %q: %w", r.Language, err)
		}
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("load image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return text, nil
}
