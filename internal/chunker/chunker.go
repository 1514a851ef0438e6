// Package chunker splits page text into overlapping windows sized for
// embedding, preferring paragraph, line and word boundaries over hard cuts.
package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ziadkadry99/manualqa/internal/documents"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// DefaultSeparators are tried in order; "" means split between characters.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// Splitter is a recursive character splitter. Lengths are counted in runes.
// It holds no mutable state and is safe for concurrent use.
type Splitter struct {
	size       int
	overlap    int
	separators []string
}

// New creates a Splitter with the default separators.
func New(size, overlap int) (*Splitter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap %d must be in [0, %d)", overlap, size)
	}
	return &Splitter{size: size, overlap: overlap, separators: DefaultSeparators}, nil
}

// Split windows every record's text. Each chunk inherits the record's source
// and page; a missing source or page becomes the unknown sentinel.
func (s *Splitter) Split(records []documents.PageRecord) []documents.Chunk {
	var chunks []documents.Chunk
	for _, rec := range records {
		rec = rec.Normalized()
		for _, text := range s.SplitText(rec.Text) {
			chunks = append(chunks, documents.Chunk{
				Text:   text,
				Source: rec.Source,
				Page:   rec.Page,
			})
		}
	}
	return chunks
}

// SplitText returns the windows for a single text. Whitespace-only input
// yields no windows.
func (s *Splitter) SplitText(text string) []string {
	return s.split(text, s.separators)
}

func (s *Splitter) split(text string, separators []string) []string {
	// Pick the first separator present in the text; its successors are used
	// for pieces that are still too long.
	sep := separators[len(separators)-1]
	var rest []string
	for i, candidate := range separators {
		if candidate == "" {
			sep = candidate
			break
		}
		if strings.Contains(text, candidate) {
			sep = candidate
			rest = separators[i+1:]
			break
		}
	}

	var out, pending []string
	for _, piece := range splitKeepingSeparator(text, sep) {
		if length(piece) < s.size {
			pending = append(pending, piece)
			continue
		}
		if len(pending) > 0 {
			out = append(out, s.merge(pending)...)
			pending = nil
		}
		if len(rest) == 0 {
			out = append(out, piece)
		} else {
			out = append(out, s.split(piece, rest)...)
		}
	}
	if len(pending) > 0 {
		out = append(out, s.merge(pending)...)
	}
	return out
}

// merge greedily packs pieces into windows of at most s.size runes. When a
// window is emitted, leading pieces are dropped until at most s.overlap runes
// remain, and those carry over into the next window.
func (s *Splitter) merge(pieces []string) []string {
	var out, current []string
	total := 0
	for _, piece := range pieces {
		n := length(piece)
		if total+n > s.size && len(current) > 0 {
			if doc := join(current); doc != "" {
				out = append(out, doc)
			}
			for total > s.overlap || (total+n > s.size && total > 0) {
				total -= length(current[0])
				current = current[1:]
			}
		}
		current = append(current, piece)
		total += n
	}
	if doc := join(current); doc != "" {
		out = append(out, doc)
	}
	return out
}

// splitKeepingSeparator splits text on sep, attaching each separator to the
// start of the piece that follows it. Empty pieces are dropped.
func splitKeepingSeparator(text, sep string) []string {
	if sep == "" {
		out := make([]string, 0, len(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}

	parts := strings.Split(text, sep)
	out := make([]string, 0, len(parts))
	if parts[0] != "" {
		out = append(out, parts[0])
	}
	for _, p := range parts[1:] {
		out = append(out, sep+p)
	}
	return out
}

func join(pieces []string) string {
	return strings.TrimSpace(strings.Join(pieces, ""))
}

func length(s string) int {
	return utf8.RuneCountInString(s)
}
