package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var rebuildIndex bool

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Build the vector index from the PDF manuals",
	Long: `Loads every PDF in the data folder (running OCR on scanned ones), splits the
pages into chunks and embeds them into the vector index. An existing index is
reused unless --rebuild is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := startup(ctx)
		if err != nil {
			return describeStartupError(err)
		}
		defer a.Close()

		report, err := a.prepareIndex(ctx, rebuildIndex)
		if err != nil {
			return describeStartupError(err)
		}
		printReport(report)
		return nil
	},
}

func init() {
	ingestCmd.Flags().BoolVar(&rebuildIndex, "rebuild", false, "discard the existing index and rebuild it")
	rootCmd.AddCommand(ingestCmd)
}
