package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/healthtrace/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize healthtrace configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to choose providers and pattern tuning, and writes a .healthtrace.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
