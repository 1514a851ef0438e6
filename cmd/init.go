package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/manualqa/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize manualqa configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to point manualqa at your manuals and generates a .manualqa.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
