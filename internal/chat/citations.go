package chat

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ziadkadry99/manualqa/internal/documents"
	"github.com/ziadkadry99/manualqa/internal/vectordb"
)

// Citation names one manual page an answer drew on.
type Citation struct {
	Source string               `json:"source"`
	Page   documents.PageNumber `json:"page"`
}

func (c Citation) String() string {
	return fmt.Sprintf("%s page %s", c.Source, c.Page)
}

// CollectCitations returns the distinct (source, page) pairs of results in
// first-seen order, or nil unless the best score is strictly above threshold.
func CollectCitations(results []vectordb.SearchResult, threshold float32) []Citation {
	if len(results) == 0 {
		return nil
	}
	best := results[0].Score
	for _, r := range results[1:] {
		if r.Score > best {
			best = r.Score
		}
	}
	if best <= threshold {
		return nil
	}

	seen := make(map[Citation]bool, len(results))
	var out []Citation
	for _, r := range results {
		c := Citation{Source: sourceName(r.Chunk.Source), Page: r.Chunk.Page}
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// FormatCitations renders the "Sources:" block appended to an answer.
func FormatCitations(citations []Citation) string {
	if len(citations) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\nSources:\n")
	for i, c := range citations {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- ")
		b.WriteString(c.String())
	}
	return b.String()
}

func sourceName(source string) string {
	if source == "" {
		return documents.UnknownSource
	}
	return filepath.Base(source)
}
