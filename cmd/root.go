package cmd

import (
	"io"
	"log"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/manualqa/internal/config"
)

var (
	cfgFile string
	envFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "manualqa",
	Short: "Ask questions about a folder of PDF equipment manuals",
	Long: `manualqa indexes a folder of PDF manuals (running OCR on scanned ones)
into a vector index and answers questions about them with a language model,
citing the manual pages the answer drew on.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !verbose {
			log.SetOutput(io.Discard)
		}
		return config.LoadDotEnv(envFile)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultFile, "config file path")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with API keys")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
