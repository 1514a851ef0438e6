package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/manualqa/internal/vectordb"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Semantically search the indexed manuals",
	Long:  `Runs a raw similarity search against the vector index and prints the matching sections with their scores. Useful for checking what the model will be shown.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().IntP("limit", "k", 5, "maximum number of results")
	searchCmd.Flags().Bool("json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	limit, _ := cmd.Flags().GetInt("limit")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := startup(ctx)
	if err != nil {
		return describeStartupError(err)
	}
	defer a.Close()

	if err := a.index.Open(ctx); err != nil {
		return fmt.Errorf("%w\nRun `manualqa ingest` first to build the index", err)
	}

	results, err := a.index.SimilaritySearch(ctx, strings.Join(args, " "), limit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if jsonOutput {
		return printSearchResultsJSON(results)
	}
	fmt.Print(vectordb.FormatResults(results))
	return nil
}

type searchResultJSON struct {
	Rank   int     `json:"rank"`
	Score  float32 `json:"score"`
	Source string  `json:"source"`
	Page   string  `json:"page"`
	Text   string  `json:"text"`
}

func printSearchResultsJSON(results []vectordb.SearchResult) error {
	out := make([]searchResultJSON, 0, len(results))
	for i, r := range results {
		out = append(out, searchResultJSON{
			Rank:   i + 1,
			Score:  r.Score,
			Source: r.Chunk.Source,
			Page:   r.Chunk.Page.String(),
			Text:   r.Chunk.Text,
		})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
