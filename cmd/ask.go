package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/manualqa/internal/chat"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question about the manuals",
	Long:  `Answers one question from the indexed manuals and lists the pages it drew on. The index is built first if it does not exist yet.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().IntP("top-k", "k", 0, "manual sections used to ground the answer (default from config)")
	askCmd.Flags().Float32("threshold", -1, "minimum relevance score for citing sources (default from config)")
	askCmd.Flags().Bool("json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	topK, _ := cmd.Flags().GetInt("top-k")
	threshold, _ := cmd.Flags().GetFloat32("threshold")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := startup(ctx)
	if err != nil {
		return describeStartupError(err)
	}
	defer a.Close()

	report, err := a.prepareIndex(ctx, false)
	if err != nil {
		return describeStartupError(err)
	}
	if !report.Reused {
		printReport(report)
	}

	engine, err := a.newEngine(ctx)
	if err != nil {
		return err
	}

	opts := chat.AskOptions{TopK: topK}
	if threshold >= 0 {
		opts.CitationThreshold = &threshold
	}
	answer, err := engine.AskWith(ctx, chat.NewSession(""), strings.Join(args, " "), opts)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(answer)
	}

	fmt.Println(answer.Text)
	if verbose {
		printUsage(engine)
	}
	return nil
}

func printUsage(engine *chat.Engine) {
	calls, in, out, cost := engine.Usage().Totals()
	fmt.Fprintf(os.Stderr, "\n%d call(s), %d input / %d output tokens, ~$%.4f\n", calls, in, out, cost)
}
